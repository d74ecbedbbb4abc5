package studio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"caslastudio/internal/imagegen"
)

// Builder encodes validated requests into service payloads. It performs no
// I/O.
type Builder struct {
	credential string
}

func NewBuilder(credential string) Builder {
	return Builder{credential: strings.TrimSpace(credential)}
}

type textToImageBody struct {
	Prompt       string   `json:"prompt"`
	SizeChoice   string   `json:"size_choice"`
	CustomSize   *string  `json:"custom_size"`
	ProductCodes []string `json:"product_codes"`
}

// Build encodes req. It panics on a Request implementation it does not know,
// which can only happen through a programming error.
func (b Builder) Build(req Request) imagegen.Payload {
	var p imagegen.Payload
	switch r := req.(type) {
	case TextToImageRequest:
		p = b.buildText(r)
	case *TextToImageRequest:
		p = b.buildText(*r)
	case ImageToImageRequest:
		p = b.buildImage(r)
	case *ImageToImageRequest:
		p = b.buildImage(*r)
	default:
		panic(fmt.Sprintf("studio: unknown request type %T", req))
	}
	p.Header = http.Header{}
	p.Header.Set("Authorization", "Bearer "+b.credential)
	return p
}

func (b Builder) buildText(r TextToImageRequest) imagegen.Payload {
	codes := r.ProductCodes
	if codes == nil {
		codes = []string{}
	}
	body, err := json.Marshal(textToImageBody{
		Prompt:       r.Prompt,
		SizeChoice:   string(r.Size.Choice),
		CustomSize:   r.Size.CustomValue(),
		ProductCodes: codes,
	})
	if err != nil {
		panic(fmt.Sprintf("studio: encode text2img body: %v", err))
	}
	return imagegen.Payload{
		Path:        ModeTextToImage.Path(),
		ContentType: "application/json",
		Body:        body,
	}
}

func (b Builder) buildImage(r ImageToImageRequest) imagegen.Payload {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := r.Image.Filename
	if filename == "" {
		filename = "upload"
	}
	contentType := r.Image.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(r.Image.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	must(err)
	_, err = part.Write(r.Image.Data)
	must(err)

	custom := ""
	if v := r.Size.CustomValue(); v != nil {
		custom = *v
	}
	codes, err := json.Marshal([]string{r.ProductCode})
	must(err)

	must(mw.WriteField("position", r.Position))
	must(mw.WriteField("size_choice", string(r.Size.Choice)))
	must(mw.WriteField("custom_size", custom))
	must(mw.WriteField("product_codes", string(codes)))
	must(mw.Close())

	return imagegen.Payload{
		Path:        ModeImageToImage.Path(),
		ContentType: mw.FormDataContentType(),
		Body:        buf.Bytes(),
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// must is for writes into an in-memory buffer, which cannot fail.
func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("studio: encode img2img body: %v", err))
	}
}
