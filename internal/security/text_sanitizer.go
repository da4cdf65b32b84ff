// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力のテキスト（投稿のdescription、コメント本文）から
// HTMLタグを除去し、保存値が常にプレーンテキストであることを保証する。
// bluemondayのStrictPolicyを使用し、タグ・属性を一切通過させない。
package security

import "github.com/microcosm-cc/bluemonday"

// TextSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// 投稿・コメントの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可リストが空のポリシーで、全てのタグと属性を除去する。
// "<b>hi</b>" → "hi"、"<script>x</script>" → "" のように
// タグだけを剥がしてテキストノードは保持する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
