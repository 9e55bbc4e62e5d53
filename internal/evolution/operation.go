package evolution

import (
	"net/http"
	"net/url"
	"strings"
)

// Operation は上流サービスの1つの機能を表す不変の記述子。
// Pathは{instance}をプレースホルダとして含むテンプレート。
type Operation struct {
	// Name は操作名。ログとメトリクスのラベルにも使用する。
	Name string
	// Method はHTTPメソッド。
	Method string
	// Path は上流パスのテンプレート。
	Path string
}

// Expand はテンプレートのプレースホルダをパスエスケープした値で置き換える。
func (o Operation) Expand(params map[string]string) string {
	path := o.Path
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// インスタンス
var (
	OpCreateInstance  = Operation{Name: "CreateInstance", Method: http.MethodPost, Path: "/instance/create"}
	OpFetchInstances  = Operation{Name: "FetchInstances", Method: http.MethodGet, Path: "/instance/fetchInstances"}
	OpConnectInstance = Operation{Name: "ConnectInstance", Method: http.MethodGet, Path: "/instance/connect/{instance}"}
	OpDeleteInstance  = Operation{Name: "DeleteInstance", Method: http.MethodDelete, Path: "/instance/delete/{instance}"}
	OpConnectionState = Operation{Name: "ConnectionState", Method: http.MethodGet, Path: "/instance/connectionState/{instance}"}
	OpLogoutInstance  = Operation{Name: "LogoutInstance", Method: http.MethodDelete, Path: "/instance/logout/{instance}"}
	OpRestartInstance = Operation{Name: "RestartInstance", Method: http.MethodPut, Path: "/instance/restart/{instance}"}
	OpInstanceQRCode  = Operation{Name: "InstanceQRCode", Method: http.MethodGet, Path: "/instance/qrcode/{instance}"}
)

// メッセージ送信
var (
	OpSendText     = Operation{Name: "SendText", Method: http.MethodPost, Path: "/message/sendText/{instance}"}
	OpSendMedia    = Operation{Name: "SendMedia", Method: http.MethodPost, Path: "/message/sendMedia/{instance}"}
	OpSendAudio    = Operation{Name: "SendAudio", Method: http.MethodPost, Path: "/message/sendWhatsAppAudio/{instance}"}
	OpSendLocation = Operation{Name: "SendLocation", Method: http.MethodPost, Path: "/message/sendLocation/{instance}"}
	OpSendContact  = Operation{Name: "SendContact", Method: http.MethodPost, Path: "/message/sendContact/{instance}"}
	OpSendReaction = Operation{Name: "SendReaction", Method: http.MethodPost, Path: "/message/sendReaction/{instance}"}
)

// 連絡先
var (
	OpFindContacts    = Operation{Name: "FindContacts", Method: http.MethodGet, Path: "/chat/findContacts/{instance}"}
	OpWhatsAppNumbers = Operation{Name: "WhatsAppNumbers", Method: http.MethodGet, Path: "/chat/whatsappNumbers/{instance}"}
	OpProfilePicture  = Operation{Name: "ProfilePicture", Method: http.MethodGet, Path: "/chat/profilePicture/{instance}"}
	OpProfileStatus   = Operation{Name: "ProfileStatus", Method: http.MethodGet, Path: "/chat/profileStatus/{instance}"}
)

// グループ
var (
	OpCreateGroup            = Operation{Name: "CreateGroup", Method: http.MethodPost, Path: "/group/create/{instance}"}
	OpFetchAllGroups         = Operation{Name: "FetchAllGroups", Method: http.MethodGet, Path: "/group/fetchAllGroups/{instance}"}
	OpGroupInfo              = Operation{Name: "GroupInfo", Method: http.MethodGet, Path: "/group/findGroupInfos/{instance}"}
	OpGroupParticipants      = Operation{Name: "GroupParticipants", Method: http.MethodGet, Path: "/group/participants/{instance}"}
	OpUpdateParticipant      = Operation{Name: "UpdateParticipant", Method: http.MethodPut, Path: "/group/updateParticipant/{instance}"}
	OpUpdateGroupSubject     = Operation{Name: "UpdateGroupSubject", Method: http.MethodPut, Path: "/group/updateGroupSubject/{instance}"}
	OpUpdateGroupDescription = Operation{Name: "UpdateGroupDescription", Method: http.MethodPut, Path: "/group/updateGroupDescription/{instance}"}
	OpLeaveGroup             = Operation{Name: "LeaveGroup", Method: http.MethodDelete, Path: "/group/leaveGroup/{instance}"}
)

// Webhook・Chatwoot連携
var (
	OpSetWebhook   = Operation{Name: "SetWebhook", Method: http.MethodPost, Path: "/webhook/set/{instance}"}
	OpFindWebhook  = Operation{Name: "FindWebhook", Method: http.MethodGet, Path: "/webhook/find/{instance}"}
	OpSetChatwoot  = Operation{Name: "SetChatwoot", Method: http.MethodPost, Path: "/chatwoot/set/{instance}"}
	OpFindChatwoot = Operation{Name: "FindChatwoot", Method: http.MethodGet, Path: "/chatwoot/find/{instance}"}
)

// チャット・ユーティリティ
var (
	OpFindChats          = Operation{Name: "FindChats", Method: http.MethodGet, Path: "/chat/findChats/{instance}"}
	OpFindMessages       = Operation{Name: "FindMessages", Method: http.MethodGet, Path: "/chat/findMessages/{instance}"}
	OpMarkMessageAsRead  = Operation{Name: "MarkMessageAsRead", Method: http.MethodPut, Path: "/chat/markMessageAsRead/{instance}"}
	OpArchiveChat        = Operation{Name: "ArchiveChat", Method: http.MethodPut, Path: "/chat/archiveChat/{instance}"}
	OpDeleteMessage      = Operation{Name: "DeleteMessage", Method: http.MethodDelete, Path: "/chat/deleteMessage/{instance}"}
	OpSendPresence       = Operation{Name: "SendPresence", Method: http.MethodPut, Path: "/chat/presence/{instance}"}
	OpUpdateContactBlock = Operation{Name: "UpdateContactBlock", Method: http.MethodPut, Path: "/chat/updateContactBlock/{instance}"}
)
