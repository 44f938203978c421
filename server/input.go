package server

import "encoding/json"

// 入站消息类型
const (
	TagJoinQueue       = "JOIN_QUEUE"
	TagLeaveQueue      = "LEAVE_QUEUE"
	TagFindPartner     = "FIND_PARTNER"
	TagCoopFindPartner = "COOP_FIND_PARTNER"
	TagCancelSearch    = "CANCEL_SEARCH"
	TagSpawnEnemies    = "SPAWN_ENEMIES"
	TagStatsUpdate     = "STATS_UPDATE"
	TagPlayerDeath     = "PLAYER_DEATH"
	TagReady           = "READY"
	TagStartGame       = "START_GAME"
	TagPlayerPosition  = "PLAYER_POSITION"
	TagPlayerShoot     = "PLAYER_SHOOT"
	TagEnemyKilled     = "ENEMY_KILLED"
	TagGameOver        = "GAME_OVER"
	TagLeaveRoom       = "LEAVE_ROOM"
	TagCoopLeave       = "COOP_LEAVE"
	TagPing            = "PING"
	TagGetStatus       = "GET_STATUS"
)

// 出站消息类型
const (
	OutMatchFound           = "MATCH_FOUND"
	OutCountdown            = "COUNTDOWN"
	OutMatchStart           = "MATCH_START"
	OutMatchEnd             = "MATCH_END"
	OutSpawnEnemies         = "SPAWN_ENEMIES"
	OutOpponentStats        = "OPPONENT_STATS"
	OutOpponentDisconnected = "OPPONENT_DISCONNECTED"
	OutSearching            = "SEARCHING"
	OutSearchCancelled      = "SEARCH_CANCELLED"
	OutPartnerReady         = "PARTNER_READY"
	OutGameStart            = "GAME_START"
	OutPartnerPosition      = "PARTNER_POSITION"
	OutPartnerShoot         = "PARTNER_SHOOT"
	OutEnemyKilledSync      = "ENEMY_KILLED_SYNC"
	OutPartnerStats         = "PARTNER_STATS"
	OutPartnerDied          = "PARTNER_DIED"
	OutGameOverSync         = "GAME_OVER_SYNC"
	OutPartnerDisconnected  = "PARTNER_DISCONNECTED"
	OutStatus               = "STATUS"
	OutPong                 = "PONG"
)

// Message 入站/出站消息信封
// 示例：{"type":"JOIN_QUEUE","payload":{"playerId":"p1","playerName":"alice","rating":1200}}
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeMessage 解析一条文本消息
func DecodeMessage(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	return m, err
}

// outbound 出站消息，payload 为任意可序列化值
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// joinPayload JOIN_QUEUE / FIND_PARTNER 的载荷
type joinPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
	Rating     int    `json:"rating,omitempty"`
}

func (j joinPayload) info() JoinInfo {
	return JoinInfo{PlayerID: j.PlayerID, Name: j.PlayerName, Rating: j.Rating}
}

type matchFoundPayload struct {
	Mode     string        `json:"mode"`
	MatchID  int64         `json:"matchId"`
	Opponent PublicProfile `json:"opponent"`
	You      PublicProfile `json:"you"`
}

type roomFoundPayload struct {
	Mode        string        `json:"mode"`
	RoomID      int64         `json:"roomId"`
	PlayerIndex int           `json:"playerIndex"`
	Partner     PublicProfile `json:"partner"`
}

type countdownPayload struct {
	MatchID int64 `json:"matchId"`
	Count   int   `json:"count"`
}

type matchStartPayload struct {
	MatchID int64 `json:"matchId"`
}

type matchEndPayload struct {
	MatchID      int64  `json:"matchId"`
	Won          bool   `json:"won"`
	RatingChange int    `json:"ratingChange"`
	NewRating    int    `json:"newRating"`
	OpponentName string `json:"opponentName"`
	Reason       string `json:"reason"`
}

type opponentDisconnectedPayload struct {
	MatchID int64  `json:"matchId"`
	Message string `json:"message"`
}

type partnerPayload struct {
	PlayerIndex int `json:"playerIndex"`
}

type roomLeftPayload struct {
	RoomID      int64 `json:"roomId"`
	PlayerIndex int   `json:"playerIndex"`
}

type gameStartPayload struct {
	RoomID int64 `json:"roomId"`
	Wave   int   `json:"wave"`
}

// 结算原因
const (
	reasonDeath      = "death"
	reasonDisconnect = "disconnect"
)
