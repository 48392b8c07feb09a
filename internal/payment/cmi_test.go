package payment

import (
	"strings"
	"testing"
)

func testClient() *CMIClient {
	return NewCMIClient(
		"600001234",
		"TEST_STORE_KEY",
		"https://testpayment.cmi.co.ma/fim/est3Dgate",
		"https://app.example.com/payment/ok",
		"https://app.example.com/payment/fail",
		"https://api.example.com/api/v1/payments/callback",
	)
}

func TestBuildRequestHashVerifies(t *testing.T) {
	c := testClient()

	fields := c.BuildRequest("order-123", "VIS-20260315-A3F09C", "sara@example.com", 350, "504")

	if fields["amount"] != "350.00" {
		t.Errorf("amount = %q, want %q", fields["amount"], "350.00")
	}
	if fields["HASH"] == "" {
		t.Fatal("HASH field is empty")
	}

	// The gateway recomputes the hash over the fields it received; our own
	// verification must accept what we produced.
	if !c.VerifyCallback(fields) {
		t.Error("VerifyCallback(BuildRequest fields) = false, want true")
	}
}

func TestVerifyCallbackRejectsTamperedField(t *testing.T) {
	c := testClient()

	fields := c.BuildRequest("order-123", "VIS-20260315-A3F09C", "sara@example.com", 350, "504")
	fields["amount"] = "1.00"

	if c.VerifyCallback(fields) {
		t.Error("VerifyCallback accepted a tampered amount")
	}
}

func TestVerifyCallbackRejectsTamperedHash(t *testing.T) {
	c := testClient()

	fields := c.BuildRequest("order-123", "VIS-20260315-A3F09C", "sara@example.com", 350, "504")

	h := fields["HASH"]
	if strings.HasPrefix(h, "A") {
		fields["HASH"] = "B" + h[1:]
	} else {
		fields["HASH"] = "A" + h[1:]
	}

	if c.VerifyCallback(fields) {
		t.Error("VerifyCallback accepted a tampered hash")
	}
}

func TestVerifyCallbackRejectsMissingHash(t *testing.T) {
	c := testClient()
	if c.VerifyCallback(map[string]string{"oid": "order-123"}) {
		t.Error("VerifyCallback accepted params without a HASH field")
	}
}

func TestVerifyCallbackWrongStoreKey(t *testing.T) {
	c := testClient()
	fields := c.BuildRequest("order-123", "VIS-20260315-A3F09C", "sara@example.com", 350, "504")

	other := testClient()
	other.StoreKey = "DIFFERENT_KEY"
	if other.VerifyCallback(fields) {
		t.Error("VerifyCallback accepted a hash signed with another store key")
	}
}

func TestComputeHashIgnoresHashAndEncodingParams(t *testing.T) {
	base := map[string]string{"oid": "o1", "amount": "10.00"}
	withExtra := map[string]string{"oid": "o1", "amount": "10.00", "HASH": "junk", "encoding": "UTF-8"}

	if got, want := ComputeHash(withExtra, "k"), ComputeHash(base, "k"); got != want {
		t.Errorf("ComputeHash with HASH/encoding params = %q, want %q", got, want)
	}
}

func TestComputeHashEscapesSeparators(t *testing.T) {
	// A value containing the separator must not collide with two separate
	// values that concatenate to the same string.
	a := ComputeHash(map[string]string{"x": "a|b", "y": "c"}, "k")
	b := ComputeHash(map[string]string{"x": "a", "y": "b|c"}, "k")
	if a == b {
		t.Error("values containing pipes collide in the hash input")
	}

	c := ComputeHash(map[string]string{"x": `a\`, "y": "b"}, "k")
	d := ComputeHash(map[string]string{"x": "a", "y": `\b`}, "k")
	if c == d {
		t.Error("values containing backslashes collide in the hash input")
	}
}

func TestInterpretOutcome(t *testing.T) {
	c := testClient()

	cases := []struct {
		code string
		want bool
	}{
		{"00", true},
		{"05", false},
		{"99", false},
		{"", false},
		{"APPROVED", false}, // unknown codes are failures, whatever they say
	}

	for _, tc := range cases {
		approved, code, msg := c.InterpretOutcome(map[string]string{"ProcReturnCode": tc.code, "ErrMsg": "detail"})
		if approved != tc.want {
			t.Errorf("InterpretOutcome(%q) = %v, want %v", tc.code, approved, tc.want)
		}
		if code != tc.code {
			t.Errorf("InterpretOutcome(%q) returned code %q", tc.code, code)
		}
		if msg != "detail" {
			t.Errorf("InterpretOutcome(%q) returned msg %q, want %q", tc.code, msg, "detail")
		}
	}
}

func TestIsConfigured(t *testing.T) {
	c := testClient()
	if !c.IsConfigured() {
		t.Error("IsConfigured() = false for a fully configured client")
	}

	c.StoreKey = ""
	if c.IsConfigured() {
		t.Error("IsConfigured() = true without a store key")
	}
}
