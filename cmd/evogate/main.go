// evogateのエントリポイント。
// Evolution APIの前段に立ち、共有シークレットで認可したリクエストを上流に転送する。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
