package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nao1215/evogate/internal/evolution"
)

// パスパターンのスロット名。
const (
	slotInstance = "instance"
	slotNumber   = "number"
	slotGroupJID = "groupJid"
)

// evolutionRoutes は上流の各操作を外部に公開するルート一覧を返す。
func evolutionRoutes(client *evolution.Client) []Route {
	return []Route{
		// インスタンス
		{Method: http.MethodPost, Pattern: "/api/instances/create", Operation: evolution.OpCreateInstance, Handler: createInstance(client)},
		{Method: http.MethodGet, Pattern: "/api/instances/list", Operation: evolution.OpFetchInstances, Handler: noInstance(client.FetchInstances)},
		{Method: http.MethodGet, Pattern: "/api/instances/{instance}/info", Operation: evolution.OpConnectInstance, Handler: instanceOnly(client.ConnectInstance)},
		{Method: http.MethodDelete, Pattern: "/api/instances/{instance}", Operation: evolution.OpDeleteInstance, Handler: instanceOnly(client.DeleteInstance)},
		{Method: http.MethodGet, Pattern: "/api/instances/{instance}/status", Operation: evolution.OpConnectionState, Handler: instanceOnly(client.ConnectionState)},
		{Method: http.MethodDelete, Pattern: "/api/instances/{instance}/logout", Operation: evolution.OpLogoutInstance, Handler: instanceOnly(client.LogoutInstance)},
		{Method: http.MethodPut, Pattern: "/api/instances/{instance}/restart", Operation: evolution.OpRestartInstance, Handler: instanceOnly(client.RestartInstance)},
		{Method: http.MethodGet, Pattern: "/api/instances/{instance}/qrcode", Operation: evolution.OpInstanceQRCode, Handler: instanceOnly(client.InstanceQRCode)},

		// メッセージ送信
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/text", Operation: evolution.OpSendText, Handler: withBody(client.SendText)},
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/media", Operation: evolution.OpSendMedia, Handler: withBody(client.SendMedia)},
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/audio", Operation: evolution.OpSendAudio, Handler: withBody(client.SendAudio)},
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/location", Operation: evolution.OpSendLocation, Handler: withBody(client.SendLocation)},
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/contact", Operation: evolution.OpSendContact, Handler: withBody(client.SendContact)},
		{Method: http.MethodPost, Pattern: "/api/messages/{instance}/reaction", Operation: evolution.OpSendReaction, Handler: withBody(client.SendReaction)},

		// 連絡先
		{Method: http.MethodGet, Pattern: "/api/contacts/{instance}/list", Operation: evolution.OpFindContacts, Handler: instanceOnly(client.FindContacts)},
		{Method: http.MethodGet, Pattern: "/api/contacts/{instance}/{number}/info", Operation: evolution.OpWhatsAppNumbers, Handler: withSlot(slotNumber, client.WhatsAppNumbers)},
		{Method: http.MethodGet, Pattern: "/api/contacts/{instance}/{number}/picture", Operation: evolution.OpProfilePicture, Handler: withSlot(slotNumber, client.ProfilePicture)},
		{Method: http.MethodGet, Pattern: "/api/contacts/{instance}/{number}/status", Operation: evolution.OpProfileStatus, Handler: withSlot(slotNumber, client.ProfileStatus)},

		// グループ
		{Method: http.MethodPost, Pattern: "/api/groups/{instance}/create", Operation: evolution.OpCreateGroup, Handler: withBody(client.CreateGroup)},
		{Method: http.MethodGet, Pattern: "/api/groups/{instance}/list", Operation: evolution.OpFetchAllGroups, Handler: instanceOnly(client.FetchAllGroups)},
		{Method: http.MethodGet, Pattern: "/api/groups/{instance}/{groupJid}/info", Operation: evolution.OpGroupInfo, Handler: withSlot(slotGroupJID, client.GroupInfo)},
		{Method: http.MethodGet, Pattern: "/api/groups/{instance}/{groupJid}/participants", Operation: evolution.OpGroupParticipants, Handler: withSlot(slotGroupJID, client.GroupParticipants)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/participants/add", Operation: evolution.OpUpdateParticipant, Handler: participants(client, evolution.ParticipantAdd)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/participants/remove", Operation: evolution.OpUpdateParticipant, Handler: participants(client, evolution.ParticipantRemove)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/participants/promote", Operation: evolution.OpUpdateParticipant, Handler: participants(client, evolution.ParticipantPromote)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/participants/demote", Operation: evolution.OpUpdateParticipant, Handler: participants(client, evolution.ParticipantDemote)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/subject", Operation: evolution.OpUpdateGroupSubject, Handler: withBody(client.UpdateGroupSubject)},
		{Method: http.MethodPut, Pattern: "/api/groups/{instance}/description", Operation: evolution.OpUpdateGroupDescription, Handler: withBody(client.UpdateGroupDescription)},
		{Method: http.MethodDelete, Pattern: "/api/groups/{instance}/{groupJid}/leave", Operation: evolution.OpLeaveGroup, Handler: withSlot(slotGroupJID, client.LeaveGroup)},

		// Webhook
		{Method: http.MethodPost, Pattern: "/api/webhooks/{instance}/set", Operation: evolution.OpSetWebhook, Handler: withBody(client.SetWebhook)},
		{Method: http.MethodGet, Pattern: "/api/webhooks/{instance}", Operation: evolution.OpFindWebhook, Handler: instanceOnly(client.FindWebhook)},

		// Chatwoot
		{Method: http.MethodPost, Pattern: "/api/chatwoot/{instance}/set", Operation: evolution.OpSetChatwoot, Handler: withBody(client.SetChatwoot)},
		{Method: http.MethodGet, Pattern: "/api/chatwoot/{instance}", Operation: evolution.OpFindChatwoot, Handler: instanceOnly(client.FindChatwoot)},

		// チャット
		{Method: http.MethodGet, Pattern: "/api/chat/{instance}/list", Operation: evolution.OpFindChats, Handler: instanceOnly(client.FindChats)},
		{Method: http.MethodGet, Pattern: "/api/chat/{instance}/{number}/messages", Operation: evolution.OpFindMessages, Handler: findMessages(client)},
		{Method: http.MethodPut, Pattern: "/api/chat/{instance}/read", Operation: evolution.OpMarkMessageAsRead, Handler: withBody(client.MarkMessageAsRead)},
		{Method: http.MethodPut, Pattern: "/api/chat/{instance}/archive", Operation: evolution.OpArchiveChat, Handler: withBody(client.ArchiveChat)},
		{Method: http.MethodDelete, Pattern: "/api/chat/{instance}/message", Operation: evolution.OpDeleteMessage, Handler: withBody(client.DeleteMessage)},

		// ユーティリティ
		{Method: http.MethodPut, Pattern: "/api/utils/{instance}/presence", Operation: evolution.OpSendPresence, Handler: withBody(client.SendPresence)},
		{Method: http.MethodPut, Pattern: "/api/utils/{instance}/block", Operation: evolution.OpUpdateContactBlock, Handler: withBody(client.UpdateContactBlock)},
	}
}

// noInstance はパラメータを取らない操作のハンドラを返す。
func noInstance(fn func(ctx context.Context) (json.RawMessage, error)) Handler {
	return func(c *gin.Context, _ Params) (json.RawMessage, error) {
		return fn(c.Request.Context())
	}
}

// instanceOnly はインスタンス名だけを取る操作のハンドラを返す。
func instanceOnly(fn func(ctx context.Context, instance string) (json.RawMessage, error)) Handler {
	return func(c *gin.Context, p Params) (json.RawMessage, error) {
		return fn(c.Request.Context(), p[slotInstance])
	}
}

// withSlot はインスタンス名と別のスロットの値を取る操作のハンドラを返す。
func withSlot(slot string, fn func(ctx context.Context, instance, value string) (json.RawMessage, error)) Handler {
	return func(c *gin.Context, p Params) (json.RawMessage, error) {
		return fn(c.Request.Context(), p[slotInstance], p[slot])
	}
}

// withBody は呼び出し元のJSONボディをそのまま転送するハンドラを返す。
func withBody(fn func(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error)) Handler {
	return func(c *gin.Context, p Params) (json.RawMessage, error) {
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		return fn(c.Request.Context(), p[slotInstance], body)
	}
}

// createInstance はインスタンス作成のハンドラを返す。
// インスタンス名だけを検証し、ボディは上流クライアントに渡す。
func createInstance(client *evolution.Client) Handler {
	return func(c *gin.Context, _ Params) (json.RawMessage, error) {
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		var req evolution.CreateInstanceRequest
		if err := validateBody(body, &req); err != nil {
			return nil, err
		}
		return client.CreateInstance(c.Request.Context(), body)
	}
}

// participants はグループ参加者に対してactionを実行するハンドラを返す。
func participants(client *evolution.Client, action evolution.ParticipantAction) Handler {
	return func(c *gin.Context, p Params) (json.RawMessage, error) {
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		return client.UpdateParticipants(c.Request.Context(), p[slotInstance], action, body)
	}
}

// findMessages はメッセージ一覧取得のハンドラを返す。
// limitとpageは省略可能で、省略時は上流クライアントのデフォルト値を使う。
func findMessages(client *evolution.Client) Handler {
	return func(c *gin.Context, p Params) (json.RawMessage, error) {
		limit, err := positiveQuery(c, "limit")
		if err != nil {
			return nil, err
		}
		page, err := positiveQuery(c, "page")
		if err != nil {
			return nil, err
		}
		return client.FindMessages(c.Request.Context(), p[slotInstance], evolution.FindMessagesQuery{
			Number: p[slotNumber],
			Limit:  limit,
			Page:   page,
		})
	}
}

// positiveQuery はクエリパラメータを正の整数として読み取る。未指定の場合は0を返す。
func positiveQuery(c *gin.Context, key string) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, malformed(
			fmt.Sprintf("Query parameter %q must be a positive integer", key),
			map[string]string{key: raw},
			err,
		)
	}
	return n, nil
}

// fieldError は検証に失敗したフィールド。
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// readBody はリクエストボディを読み取り、JSONオブジェクトであることだけを確認する。
// 返すバイト列は受け取ったものと同一。
func readBody(c *gin.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, malformed("Failed to read request body", nil, err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, malformed("Request body is required", nil, nil)
	}
	if !json.Valid(trimmed) {
		return nil, malformed("Request body is not valid JSON", nil, nil)
	}
	if trimmed[0] != '{' {
		return nil, malformed("Request body must be a JSON object", nil, nil)
	}
	return body, nil
}

// validateBody はボディをobjにデコードしてbindingタグで検証する。
// objはゲートウェイ自身が参照するフィールドだけを持つ。
func validateBody(body json.RawMessage, obj any) error {
	if err := binding.JSON.BindBody(body, obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]fieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
			}
			return malformed("Request body failed validation", map[string][]fieldError{"fields": fields}, err)
		}
		return malformed("Request body is not valid JSON for this endpoint", nil, err)
	}
	return nil
}
