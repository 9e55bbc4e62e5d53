package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAPISecret は共有シークレットを送るリクエストヘッダー名。
const HeaderAPISecret = "X-Api-Secret"

// Decision は認可判定の結果。
type Decision int

const (
	// Allow はリクエストを許可する。
	Allow Decision = iota
	// Deny はリクエストを拒否する。
	Deny
)

// Guard は共有シークレットによる認可判定を行う。
// シークレットが未設定の場合はすべてのリクエストを許可する（fail-open）。
// これは意図した挙動であり、本番環境では必ずシークレットを設定すること。
type Guard struct {
	// secret は期待するシークレット。空の場合は認可を行わない。
	secret string
}

// NewGuard は期待するシークレットからGuardを生成する。
func NewGuard(secret string) Guard {
	return Guard{secret: secret}
}

// Enabled はシークレットが設定されているかを返す。
func (g Guard) Enabled() bool {
	return g.secret != ""
}

// Authorize はヘッダーのシークレットを検証する。
// ヘッダーが存在しない場合も不一致として扱う。
func (g Guard) Authorize(header http.Header) Decision {
	if !g.Enabled() {
		return Allow
	}
	got := header.Get(HeaderAPISecret)
	if subtle.ConstantTimeCompare([]byte(got), []byte(g.secret)) == 1 {
		return Allow
	}
	return Deny
}

// SharedSecret は共有シークレットを検証するGinミドルウェアを返す。
// 拒否した場合はonDenyでレスポンスを書き込み、後続のハンドラを実行しない。
func SharedSecret(g Guard, onDeny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Authorize(c.Request.Header) == Deny {
			onDeny(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
