package models

import "time"

type Member struct {
	ID        int64
	Username  string
	PassHash  []byte
	CreatedAt time.Time
}

type Token struct {
	Key       string
	MemberID  int64
	CreatedAt time.Time
}

// Identity is a resolved bearer token together with the member that
// owns it. The authentication middleware attaches it to the request
// context.
type Identity struct {
	Member Member `json:"member"`
	Token  Token  `json:"token"`
}

type Message struct {
	ID             int64
	AuthorID       int64
	AuthorUsername string
	Text           string
	CreatedAt      time.Time
}

// MessagePostedEvent is published to the broker after a message has
// been stored.
type MessagePostedEvent struct {
	MessageID      int64     `json:"message_id"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
