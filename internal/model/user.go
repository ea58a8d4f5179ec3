// Package model はドメインモデルを定義する。
package model

import "time"

// SessionCookieName はセッションIDを保持するCookieの名前。
// ルーティングゲートの事前フィルタ（"auth-token"断片）に一致する名前にしている。
const SessionCookieName = "goatnotes-auth-token"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2id PHC形式
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
