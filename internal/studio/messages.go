package studio

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported lists the locales user messages are translated into. The first
// entry is the fallback.
var Supported = []language.Tag{language.Vietnamese, language.English}

const (
	msgMissingText    = "Please enter a description and select at least one product."
	msgMissingImage   = "Please upload an image, enter a position and select one product."
	msgInvalidSize    = "Custom size must look like 1280x720."
	msgInFlight       = "An image is already being generated, please wait."
	msgTextFailed     = "Error generating image: %s"
	msgImageFailed    = "Error processing image: %s"
	msgUnreachable    = "the generation service could not be reached"
	msgRejected       = "the generation service returned an error"
	msgUnexpected     = "Something went wrong, please try again."
	msgNoResult       = "No image has been generated yet."
	msgSessionMissing = "Session not found."
)

var viMessages = map[string]string{
	msgMissingText:    "Vui lòng nhập mô tả và chọn ít nhất một sản phẩm.",
	msgMissingImage:   "Vui lòng tải ảnh lên, nhập vị trí và chọn một sản phẩm.",
	msgInvalidSize:    "Kích thước tùy chỉnh phải có dạng 1280x720.",
	msgInFlight:       "Ảnh đang được tạo, vui lòng chờ.",
	msgTextFailed:     "Lỗi khi tạo ảnh: %s",
	msgImageFailed:    "Lỗi khi xử lý ảnh: %s",
	msgUnreachable:    "không thể kết nối tới máy chủ tạo ảnh",
	msgRejected:       "máy chủ tạo ảnh trả về lỗi",
	msgUnexpected:     "Đã có lỗi xảy ra, vui lòng thử lại.",
	msgNoResult:       "Chưa có ảnh nào được tạo.",
	msgSessionMissing: "Không tìm thấy phiên làm việc.",
}

var messages = mustMessageCatalog(viMessages)

// buildMessageCatalog registers each English key under itself and its
// Vietnamese translation.
func buildMessageCatalog(vi map[string]string) (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.Vietnamese))
	var errs []error
	for key, text := range vi {
		if err := b.SetString(language.Vietnamese, key, text); err != nil {
			errs = append(errs, fmt.Errorf("vi %q: %w", key, err))
		}
		if err := b.SetString(language.English, key, key); err != nil {
			errs = append(errs, fmt.Errorf("en %q: %w", key, err))
		}
	}
	return b, errors.Join(errs...)
}

func mustMessageCatalog(vi map[string]string) *catalog.Builder {
	b, err := buildMessageCatalog(vi)
	if err != nil {
		panic("studio: message catalog: " + err.Error())
	}
	return b
}

func printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// Message renders err as the single user facing sentence for it.
func Message(tag language.Tag, err error) string {
	p := printer(tag)
	var reqErr *RequestError
	switch {
	case errors.Is(err, ErrMissingTextFields):
		return p.Sprintf(msgMissingText)
	case errors.Is(err, ErrMissingImageFields):
		return p.Sprintf(msgMissingImage)
	case errors.Is(err, ErrInvalidCustomSize):
		return p.Sprintf(msgInvalidSize)
	case errors.As(err, &reqErr):
		return requestMessage(p, reqErr)
	}
	return p.Sprintf(msgUnexpected)
}

func requestMessage(p *message.Printer, e *RequestError) string {
	if e.Kind == KindAlreadyInFlight {
		return p.Sprintf(msgInFlight)
	}
	reason := e.Detail
	if reason == "" {
		if e.Kind == KindTransport {
			reason = p.Sprintf(msgUnreachable)
		} else {
			reason = p.Sprintf(msgRejected)
		}
	}
	if e.Mode == ModeImageToImage {
		return p.Sprintf(msgImageFailed, reason)
	}
	return p.Sprintf(msgTextFailed, reason)
}

// NoResultMessage is shown when a download is requested before any success.
func NoResultMessage(tag language.Tag) string {
	return printer(tag).Sprintf(msgNoResult)
}

func SessionMissingMessage(tag language.Tag) string {
	return printer(tag).Sprintf(msgSessionMissing)
}
