// Package security は入力値の無害化機能を提供する。
//
// 機器名・備考などの自由記述テキストは表示側でHTMLとして埋め込まれうるため、
// 保存前にbluemondayのStrictPolicyで全タグを除去し、プレーンテキストとして扱う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述テキストをプレーンテキストに変換する。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去し、前後の空白を取り除いた文字列を返す。
	// script/styleタグはその内容ごと除去される。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。bluemondayのポリシーはスレッドセーフ。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses はエンティティの多重エスケープを展開する上限回数。
const maxSanitizePasses = 8

// Sanitize はHTMLタグを除去したプレーンテキストを返す。
// エンティティ化されたタグ（&lt;b&gt; など）も展開後に再度除去し、
// 出力を再度Sanitizeしても変化しない状態になるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	cur := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(cur)))
		if next == cur {
			return cur
		}
		cur = next
	}
	// 収束しない入力はエスケープされたままの出力を返す
	return strings.TrimSpace(s.policy.Sanitize(cur))
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
