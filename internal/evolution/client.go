package evolution

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/evogate/pkg/httpclient"
)

// apiKeyHeader は上流サービスのAPIキーを送るヘッダー名。
const apiKeyHeader = "apikey"

// Config は上流サービスへの接続設定。
type Config struct {
	// BaseURL は上流サービスのベースURL。
	BaseURL string
	// APIKey は全リクエストに付与する共有APIキー。
	APIKey string
	// Timeout はリクエスト1回あたりのタイムアウト。
	Timeout time.Duration
}

// Client は上流サービスの機能ごとにメソッドを持つクライアント。
// リクエストボディは呼び出し元のバイト列をそのまま送り、
// 成功時は上流のレスポンスボディを加工せずに返す。
type Client struct {
	// http は上流サービスとの通信に使用するHTTPクライアント。
	http *httpclient.Client
}

// NewClient は接続設定から新しいクライアントを生成する。
func NewClient(cfg Config, opts ...httpclient.Option) *Client {
	base := []httpclient.Option{httpclient.WithHeader(apiKeyHeader, cfg.APIKey)}
	if cfg.Timeout > 0 {
		base = append(base, httpclient.WithTimeout(cfg.Timeout))
	}
	return &Client{http: httpclient.New(cfg.BaseURL, append(base, opts...)...)}
}

// BaseURL は上流サービスのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

// call は記述子に従って上流サービスを1回呼び出す。
func (c *Client) call(ctx context.Context, op Operation, instance string, query url.Values, body json.RawMessage) (json.RawMessage, error) {
	path := op.Expand(map[string]string{"instance": instance})
	if body == nil {
		return c.http.Do(ctx, op.Method, path, query, nil)
	}
	return c.http.Do(ctx, op.Method, path, query, body)
}

// CreateInstance はインスタンスを作成する。
// bodyは呼び出し元のボディをそのまま送り、qrcodeが無い場合だけtrueを加える。
func (c *Client) CreateInstance(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	body, err := setField(body, "qrcode", true, false)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, OpCreateInstance, "", nil, body)
}

// FetchInstances はインスタンス一覧を取得する。
func (c *Client) FetchInstances(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, OpFetchInstances, "", nil, nil)
}

// ConnectInstance はインスタンスの接続情報を取得する。
func (c *Client) ConnectInstance(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpConnectInstance, instance, nil, nil)
}

// DeleteInstance はインスタンスを削除する。
func (c *Client) DeleteInstance(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpDeleteInstance, instance, nil, nil)
}

// ConnectionState はインスタンスの接続状態を取得する。
func (c *Client) ConnectionState(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpConnectionState, instance, nil, nil)
}

// LogoutInstance はインスタンスをログアウトさせる。
func (c *Client) LogoutInstance(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpLogoutInstance, instance, nil, nil)
}

// RestartInstance はインスタンスを再起動する。
func (c *Client) RestartInstance(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpRestartInstance, instance, nil, nil)
}

// InstanceQRCode はインスタンスのQRコードを取得する。
func (c *Client) InstanceQRCode(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpInstanceQRCode, instance, nil, nil)
}

// SendText はテキストメッセージを送信する。
func (c *Client) SendText(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendText, instance, nil, body)
}

// SendMedia は画像・動画・文書などのメディアを送信する。
func (c *Client) SendMedia(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendMedia, instance, nil, body)
}

// SendAudio は音声メッセージを送信する。
func (c *Client) SendAudio(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendAudio, instance, nil, body)
}

// SendLocation は位置情報を送信する。
func (c *Client) SendLocation(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendLocation, instance, nil, body)
}

// SendContact は連絡先を送信する。
func (c *Client) SendContact(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendContact, instance, nil, body)
}

// SendReaction はメッセージにリアクションを送る。
func (c *Client) SendReaction(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendReaction, instance, nil, body)
}

// FindContacts は連絡先一覧を取得する。
func (c *Client) FindContacts(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpFindContacts, instance, nil, nil)
}

// WhatsAppNumbers は番号がWhatsAppに登録されているかを確認する。
func (c *Client) WhatsAppNumbers(ctx context.Context, instance, number string) (json.RawMessage, error) {
	return c.call(ctx, OpWhatsAppNumbers, instance, url.Values{"numbers": {number}}, nil)
}

// ProfilePicture はプロフィール画像のURLを取得する。
func (c *Client) ProfilePicture(ctx context.Context, instance, number string) (json.RawMessage, error) {
	return c.call(ctx, OpProfilePicture, instance, url.Values{"number": {number}}, nil)
}

// ProfileStatus はプロフィールのステータスメッセージを取得する。
func (c *Client) ProfileStatus(ctx context.Context, instance, number string) (json.RawMessage, error) {
	return c.call(ctx, OpProfileStatus, instance, url.Values{"number": {number}}, nil)
}

// CreateGroup はグループを作成する。
func (c *Client) CreateGroup(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpCreateGroup, instance, nil, body)
}

// FetchAllGroups は参加しているグループ一覧を取得する。
func (c *Client) FetchAllGroups(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpFetchAllGroups, instance, nil, nil)
}

// GroupInfo はグループの情報を取得する。
func (c *Client) GroupInfo(ctx context.Context, instance, groupJID string) (json.RawMessage, error) {
	return c.call(ctx, OpGroupInfo, instance, url.Values{"groupJid": {groupJID}}, nil)
}

// GroupParticipants はグループの参加者一覧を取得する。
func (c *Client) GroupParticipants(ctx context.Context, instance, groupJID string) (json.RawMessage, error) {
	return c.call(ctx, OpGroupParticipants, instance, url.Values{"groupJid": {groupJID}}, nil)
}

// UpdateParticipants はグループ参加者に対してactionを実行する。
// bodyにactionを加えて送る。呼び出し元がactionを含めていても上書きする。
func (c *Client) UpdateParticipants(ctx context.Context, instance string, action ParticipantAction, body json.RawMessage) (json.RawMessage, error) {
	body, err := setField(body, "action", action, true)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, OpUpdateParticipant, instance, nil, body)
}

// UpdateGroupSubject はグループ名を変更する。
func (c *Client) UpdateGroupSubject(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpUpdateGroupSubject, instance, nil, body)
}

// UpdateGroupDescription はグループの説明を変更する。
func (c *Client) UpdateGroupDescription(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpUpdateGroupDescription, instance, nil, body)
}

// LeaveGroup はグループから退出する。
func (c *Client) LeaveGroup(ctx context.Context, instance, groupJID string) (json.RawMessage, error) {
	return c.call(ctx, OpLeaveGroup, instance, url.Values{"groupJid": {groupJID}}, nil)
}

// SetWebhook はWebhookを設定する。
func (c *Client) SetWebhook(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSetWebhook, instance, nil, body)
}

// FindWebhook はWebhook設定を取得する。
func (c *Client) FindWebhook(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpFindWebhook, instance, nil, nil)
}

// SetChatwoot はChatwoot連携を設定する。
func (c *Client) SetChatwoot(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSetChatwoot, instance, nil, body)
}

// FindChatwoot はChatwoot連携設定を取得する。
func (c *Client) FindChatwoot(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpFindChatwoot, instance, nil, nil)
}

// FindChats はチャット一覧を取得する。
func (c *Client) FindChats(ctx context.Context, instance string) (json.RawMessage, error) {
	return c.call(ctx, OpFindChats, instance, nil, nil)
}

// FindMessages はチャットのメッセージ一覧を取得する。
// LimitとPageが0の場合はそれぞれ20と1を使う。
func (c *Client) FindMessages(ctx context.Context, instance string, q FindMessagesQuery) (json.RawMessage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	page := q.Page
	if page <= 0 {
		page = DefaultMessagePage
	}
	query := url.Values{
		"number": {q.Number},
		"limit":  {strconv.Itoa(limit)},
		"page":   {strconv.Itoa(page)},
	}
	return c.call(ctx, OpFindMessages, instance, query, nil)
}

// MarkMessageAsRead はメッセージを既読にする。
func (c *Client) MarkMessageAsRead(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpMarkMessageAsRead, instance, nil, body)
}

// ArchiveChat はチャットをアーカイブまたはアーカイブ解除する。
func (c *Client) ArchiveChat(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpArchiveChat, instance, nil, body)
}

// DeleteMessage はメッセージを削除する。DELETEリクエストにボディを付けて送る。
func (c *Client) DeleteMessage(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpDeleteMessage, instance, nil, body)
}

// SendPresence は入力中・録音中などのプレゼンスを送信する。
func (c *Client) SendPresence(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpSendPresence, instance, nil, body)
}

// UpdateContactBlock は連絡先をブロックまたはブロック解除する。
func (c *Client) UpdateContactBlock(ctx context.Context, instance string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, OpUpdateContactBlock, instance, nil, body)
}
