package imggen

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// ticketScheme 二维码内容前缀
const ticketScheme = "sakura-lottery://ticket/"

// TicketQRContent 彩票凭证二维码内容
func TicketQRContent(uuid string) string {
	return ticketScheme + uuid
}

// GenerateTicketQR 生成彩票凭证二维码 PNG
func GenerateTicketQR(uuid string, size int) ([]byte, error) {
	if uuid == "" {
		return nil, fmt.Errorf("凭证为空")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(TicketQRContent(uuid), qrcode.Medium, size)
}
