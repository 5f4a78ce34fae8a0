package domain_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	webhookdomain "github.com/smallbiznis/blastwave/internal/webhook/domain"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	if !webhookdomain.VerifySignature("app-secret", body, sign("app-secret", body)) {
		t.Fatalf("valid signature must verify")
	}
	if webhookdomain.VerifySignature("app-secret", body, sign("wrong-secret", body)) {
		t.Fatalf("signature from wrong secret must fail")
	}
	if webhookdomain.VerifySignature("app-secret", []byte("tampered"), sign("app-secret", body)) {
		t.Fatalf("tampered body must fail")
	}
	if webhookdomain.VerifySignature("app-secret", body, "") {
		t.Fatalf("missing header must fail")
	}
	if webhookdomain.VerifySignature("app-secret", body, "md5=abcdef") {
		t.Fatalf("wrong scheme must fail")
	}
	if webhookdomain.VerifySignature("app-secret", body, "sha256=zzzz") {
		t.Fatalf("non-hex digest must fail")
	}
	if webhookdomain.VerifySignature("", body, sign("", body)) {
		t.Fatalf("empty secret must never verify")
	}
}
