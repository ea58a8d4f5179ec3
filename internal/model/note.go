package model

import "time"

// MaxNoteTextBytes はノート本文の最大バイト数。
const MaxNoteTextBytes = 100000

// Note はユーザーが作成するノートを表す。
// 最新ノートの判定にはUpdatedAtを使用する。
type Note struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
