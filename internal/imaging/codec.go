// Package imaging は画像データのワイヤ表現（base64テキスト）と
// 保存表現（バイナリ）の相互変換を提供する。
//
// ここではエンコーディング変換のみを行い、サイズ・MIMEタイプ等の
// ビジネス検証は呼び出し側（postパッケージ）が担う。
package imaging

import (
	"encoding/base64"

	"github.com/hitoshi/picshare/internal/model"
)

// Codec はbase64テキストとバイナリの相互変換を行う。
// EncodeOutgoingとDecodeIncomingは互いに逆変換であり、
// 任意のバイト列Bについて DecodeIncoming(EncodeOutgoing(B)) == B が成り立つ。
type Codec struct{}

// NewCodec はCodecを生成する。
func NewCodec() *Codec {
	return &Codec{}
}

// DecodeIncoming はワイヤ上のbase64テキストをバイナリにデコードする。
// 入力が正しいbase64でない場合はINVALID_IMAGE_DATAエラーを返す。
func (c *Codec) DecodeIncoming(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, model.NewInvalidImageDataError()
	}
	return decoded, nil
}

// EncodeOutgoing はバイナリをワイヤ上のbase64テキストにエンコードする。
// 全てのバイト列に対して成功する。
func (c *Codec) EncodeOutgoing(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
