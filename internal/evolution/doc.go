// Package evolution は上流のEvolution APIを呼び出すクライアントを提供する。
//
// 上流の機能ごとに不変の操作記述子（Operation）を持ち、Clientは記述子1つにつき
// 1つのメソッドを公開する。リクエストの形はタグ付き構造体で表現し、
// ゲートウェイ側で構造的な検証を行ったうえで上流に送る。
package evolution
