// Package event はゲートウェイが発行する上流呼び出しイベントを定義する。
package event
