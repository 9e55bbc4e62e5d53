// Package gateway はEvolution APIの前段に立つ認証付き転送ゲートウェイを提供する。
//
// 外部に公開するルートはRegistryに一度だけ登録し、リクエストごとに
// 認可、ルート解決、上流への転送、エンベロープへの変換を順に行う。
// 上流への呼び出しはリクエストあたり高々1回で、自動的な再試行は行わない。
// どの段階の失敗もFailureに正規化し、必ず1つのJSONエンベロープとして返す。
//
// 成功時は {"success":true,"data":...} を返し、dataには上流のレスポンスボディを
// 加工せずに入れる。失敗時は {"success":false,"error":...,"details":...,"timestamp":...}
// を返し、上流がエラーボディを返した場合はdetailsにそのまま入れる。
package gateway
