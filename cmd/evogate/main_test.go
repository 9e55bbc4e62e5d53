package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestRoutesCommand はroutesコマンドがルート一覧を表示することを検証する。
func TestRoutesCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"routes"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute()でエラーが発生: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"METHOD",
		"/api/instances/create",
		"/message/sendWhatsAppAudio/{instance}",
		"/api/utils/{instance}/block",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("出力に %q が含まれない:\n%s", want, got)
		}
	}
}

// TestVersionCommand はversionコマンドがバージョンを表示することを検証する。
func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute()でエラーが発生: %v", err)
	}
	if !strings.HasPrefix(out.String(), "evogate "+Version) {
		t.Errorf("出力 = %q", out.String())
	}
}

// TestServeRejectsInvalidConfig は不正な設定でserveが起動しないことを検証する。
func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("EVOLUTION_API_URL", "not a url")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve"})
	if err := cmd.Execute(); err == nil {
		t.Error("Execute()がエラーを返すべきだが、nilが返った")
	}
}
