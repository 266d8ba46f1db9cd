package service

import (
	"fmt"
	"net/url"
	"strings"
)

// WhatsAppLink opens a chat with phone, pre-filled with message. phone is
// reduced to its digits, international format without the plus sign.
func WhatsAppLink(phone, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(message))
}

// WhatsAppShareLink shares text without a fixed recipient
func WhatsAppShareLink(text string) string {
	return "https://wa.me/?text=" + url.QueryEscape(text)
}

func BuyMessage(productName, productURL string) string {
	return fmt.Sprintf("Hi, I am interested in getting %q. I saw it on Vantage: %s", productName, productURL)
}

// OrderMessage lets a buyer confirm a purchase with the seller.
func OrderMessage(productName, reference string) string {
	return fmt.Sprintf("Hi, I just paid for %q. My payment reference is %s.", productName, reference)
}
