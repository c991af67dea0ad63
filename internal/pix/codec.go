// Package pix builds BR Code payment payloads ("Pix copia e cola"): the
// EMV-style TLV text a customer scans to pay a given amount instantly.
package pix

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxMerchantName = 25
	maxMerchantCity = 15
	maxTxID         = 25
	maxDescription  = 40
)

var txidPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)

// stripMarks decomposes to NFD and removes combining marks, turning
// "São Paulo" into "Sao Paulo".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Encode builds the complete BR Code payload for a dynamic-amount charge.
//
// Preconditions (not checked at runtime): key is non-empty, amount is
// positive, merchantName and merchantCity are non-empty. Callers validate
// before invoking; Encode itself never fails.
//
// Field sanitation mirrors the BR Code limits: merchantName is
// transliterated and capped at 25 characters, merchantCity transliterated,
// upper-cased and capped at 15, txid stripped to alphanumerics and capped
// at 25 (falling back to "***"), description capped at 40.
func Encode(key string, amount decimal.Decimal, merchantName, merchantCity, txid, description string) string {
	name := strings.TrimSpace(truncate(transliterate(merchantName), maxMerchantName))
	city := strings.TrimSpace(truncate(strings.ToUpper(transliterate(merchantCity)), maxMerchantCity))
	safeTxid := truncate(txidPattern.ReplaceAllString(txid, ""), maxTxID)
	if safeTxid == "" {
		safeTxid = "***"
	}
	desc := truncate(description, maxDescription)

	// Tag 26: merchant account information (Pix GUI + key + description).
	merchantInfo := field("00", "BR.GOV.BCB.PIX") + field("01", key)
	if desc != "" {
		merchantInfo += field("02", desc)
	}

	var b strings.Builder
	b.WriteString(field("00", "01"))                  // payload format indicator
	b.WriteString(field("26", merchantInfo))          // merchant account info
	b.WriteString(field("52", "0000"))                // merchant category code
	b.WriteString(field("53", "986"))                 // currency (BRL)
	b.WriteString(field("54", amount.StringFixed(2))) // transaction amount
	b.WriteString(field("58", "BR"))                  // country code
	b.WriteString(field("59", name))                  // merchant name
	b.WriteString(field("60", city))                  // merchant city
	b.WriteString(field("62", field("05", safeTxid))) // additional data: txid

	// The checksum covers the payload including the CRC tag-and-length
	// placeholder itself.
	b.WriteString("6304")
	payload := b.String()
	return payload + Checksum(payload)
}

// QRImageURL returns a ready-to-embed QR image URL for a payload.
func QRImageURL(payload string, size int) string {
	return fmt.Sprintf("https://api.qrserver.com/v1/create-qr-code/?size=%dx%d&ecc=M&data=%s",
		size, size, url.QueryEscape(payload))
}

// field encodes one EMV TLV field: 2-digit tag, 2-digit zero-padded length
// of the value in characters, then the value verbatim.
func field(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len([]rune(value)), value)
}

func transliterate(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
