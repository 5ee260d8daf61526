package payment

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadQRString = errors.New("malformed static QRIS string")

// dynamicQRIS rewrites a merchant's static QRIS payload into a dynamic one
// carrying the exact amount: the point-of-initiation tag flips from static
// (11) to dynamic (12), a transaction-amount field (tag 54) is inserted
// before the country code (tag 58), and the trailing CRC is recomputed.
func dynamicQRIS(static string, amount int64) (string, error) {
	static = strings.TrimSpace(static)
	if len(static) < 8 {
		return "", ErrBadQRString
	}

	// Strip the old CRC (tag 63, always last: "6304" + 4 hex chars).
	idx := strings.LastIndex(static, "6304")
	if idx < 0 {
		return "", ErrBadQRString
	}
	body := static[:idx]

	body = strings.Replace(body, "010211", "010212", 1)

	value := fmt.Sprintf("%d", amount)
	amountField := fmt.Sprintf("54%02d%s", len(value), value)

	split := strings.Index(body, "5802ID")
	if split < 0 {
		return "", ErrBadQRString
	}
	body = body[:split] + amountField + body[split:]

	body += "6304"
	return body + crc16CCITT(body), nil
}

// crc16CCITT is the CRC-16/CCITT-FALSE checksum EMV QR codes close with.
func crc16CCITT(s string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}
