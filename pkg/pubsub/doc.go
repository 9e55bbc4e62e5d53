// Package pubsub はゲートウェイの呼び出しイベントを外部に発行するパブリッシャーを提供する。
//
// RabbitMQへの発行は非同期で行い、キューが満杯の場合はイベントを破棄する。
// イベントの発行がリクエストの処理を遅延させたり失敗させたりすることはない。
package pubsub
