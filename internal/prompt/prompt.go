// Package prompt assembles the instructions sent to the image service
// together with the template image.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/manash/slidegen/pkg/models"
)

const defaultTemplate = `あなたはプレゼン資料デザイナーです。
添付のテンプレ画像の「レイアウト・配色・余白・装飾・雰囲気」を最大限維持したまま、
以下のテキストを“日本語の一枚スライド画像”として読みやすく配置してください。

必須要件:
- 日本語で出力する（見出し + 箇条書き中心）
- 情報量は絞る：長文は要約して、最大でも箇条書き6点程度
- 文字は大きく、コントラストを強くして可読性を最優先
- テンプレの枠/帯/余白/区切りを活かして自然に収める
- 新しいイラストやアイコンは基本追加しない（必要最小限）
- “スライド1枚”として視認性を高くする（詰め込み禁止）
- 元の図形・矢印・アイコン位置をできる限り動かさない
{{- if .Aspect}}
- 仕上がり比率は {{.Aspect}} を意識
{{- end}}

入力テキスト:
{{.Text}}`

// Data is what a prompt template can reference.
type Data struct {
	Text   string
	Aspect string
}

type Builder struct {
	tmpl *template.Template
}

// New returns a Builder using the built-in slide designer instructions.
func New() *Builder {
	return &Builder{tmpl: template.Must(template.New("slide").Parse(defaultTemplate))}
}

// Parse returns a Builder for a user supplied text/template.
func Parse(src string) (*Builder, error) {
	tmpl, err := template.New("custom").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %v", models.ErrInvalidArgument, err)
	}
	return &Builder{tmpl: tmpl}, nil
}

// Load reads a prompt template from path. An empty path yields the default.
func Load(path string) (*Builder, error) {
	if path == "" {
		return New(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %v", models.ErrInvalidArgument, err)
	}
	return Parse(string(b))
}

// Build renders the prompt for text. text is embedded exactly as given;
// whitespace only counts when deciding it is empty. aspect is optional and
// only mentioned when set.
func (b *Builder) Build(text, aspect string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text cannot be empty", models.ErrInvalidArgument)
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, Data{Text: text, Aspect: aspect}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
