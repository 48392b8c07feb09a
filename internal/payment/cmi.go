package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

// approvedProcCodes is the allow-list of gateway response codes treated as
// an approved payment. Anything else, including codes we have never seen,
// is a failure.
var approvedProcCodes = map[string]bool{
	"00": true,
}

// CMIClient signs and verifies requests for the CMI hosted payment page.
// The gateway posts the customer to GatewayURL with the signed fields and
// later calls CallbackURL with the result, signed the same way.
type CMIClient struct {
	ClientID    string
	StoreKey    string
	GatewayURL  string
	OkURL       string
	FailURL     string
	CallbackURL string
}

func NewCMIClient(clientID, storeKey, gatewayURL, okURL, failURL, callbackURL string) *CMIClient {
	return &CMIClient{
		ClientID:    clientID,
		StoreKey:    storeKey,
		GatewayURL:  gatewayURL,
		OkURL:       okURL,
		FailURL:     failURL,
		CallbackURL: callbackURL,
	}
}

func (c *CMIClient) IsConfigured() bool {
	return c.ClientID != "" && c.StoreKey != "" && c.GatewayURL != ""
}

// BuildRequest produces the hidden form fields for one payment attempt.
// Amount is formatted with two decimals; currency 504 is MAD.
func (c *CMIClient) BuildRequest(orderID, bookingNumber, email string, amount float64, currency string) map[string]string {
	fields := map[string]string{
		"clientid":      c.ClientID,
		"oid":           orderID,
		"amount":        fmt.Sprintf("%.2f", amount),
		"currency":      currency,
		"okUrl":         c.OkURL,
		"failUrl":       c.FailURL,
		"callbackUrl":   c.CallbackURL,
		"TranType":      "Auth",
		"storetype":     "3D_PAY_HOSTING",
		"hashAlgorithm": "ver3",
		"lang":          "fr",
		"email":         email,
		"BillToName":    bookingNumber,
		"rnd":           orderID,
	}
	fields["HASH"] = ComputeHash(fields, c.StoreKey)
	return fields
}

// VerifyCallback recomputes the hash over the posted parameters and
// compares it to the HASH field in constant time. Interpretation of the
// outcome only happens after this returns true.
func (c *CMIClient) VerifyCallback(params map[string]string) bool {
	received := params["HASH"]
	if received == "" {
		return false
	}
	expected := ComputeHash(params, c.StoreKey)
	return subtle.ConstantTimeCompare([]byte(received), []byte(expected)) == 1
}

// InterpretOutcome maps the gateway response code to an approved or failed
// payment. Call only after VerifyCallback has passed.
func (c *CMIClient) InterpretOutcome(params map[string]string) (approved bool, code, msg string) {
	code = params["ProcReturnCode"]
	return approvedProcCodes[code], code, params["ErrMsg"]
}

// ComputeHash implements the ver3 scheme: sort parameter names without
// case, skip HASH and encoding, escape backslash and pipe in each value,
// join with pipes, append the escaped store key, then base64 the SHA-512.
func ComputeHash(params map[string]string, storeKey string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		lower := strings.ToLower(k)
		if lower == "hash" || lower == "encoding" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(escapeHashValue(params[k]))
		sb.WriteByte('|')
	}
	sb.WriteString(escapeHashValue(storeKey))

	sum := sha512.Sum512([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func escapeHashValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `|`, `\|`)
	return v
}
