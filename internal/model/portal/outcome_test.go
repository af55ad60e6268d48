package portal

import "testing"

func TestClassifyLogin(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    Outcome
	}{
		{"success flag", map[string]any{"success": true}, OutcomeSuccess},
		{"result numeric zero", map[string]any{"result": 0.0}, OutcomeSuccess},
		{"result string zero", map[string]any{"result": "0"}, OutcomeSuccess},
		{"status zero", map[string]any{"status": "0"}, OutcomeSuccess},
		{"failure code", map[string]any{"result": 1.0, "message": "验证码错误"}, OutcomeFailure},
		{"success false no code", map[string]any{"success": false}, OutcomeFailure},
		{"nil payload", nil, OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLogin(tt.payload); got != tt.want {
				t.Fatalf("ClassifyLogin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnswerAccepted(t *testing.T) {
	if !AnswerAccepted(map[string]any{"isRight": "10"}) {
		t.Fatal("string \"10\" should be accepted")
	}
	if !AnswerAccepted(map[string]any{"isRight": 10.0}) {
		t.Fatal("numeric 10 should be accepted")
	}
	if AnswerAccepted(map[string]any{"isRight": "0"}) {
		t.Fatal("other codes should not be accepted")
	}
	if AnswerAccepted(map[string]any{}) {
		t.Fatal("missing isRight should not be accepted")
	}
}

func TestFailureMessage(t *testing.T) {
	got := FailureMessage(map[string]any{"msg": "账号锁定"}, "raw")
	if got != "账号锁定" {
		t.Fatalf("FailureMessage = %q", got)
	}
	got = FailureMessage(map[string]any{"message": "验证码错误", "msg": "ignored"}, "raw")
	if got != "验证码错误" {
		t.Fatalf("message should win over msg, got %q", got)
	}
	got = FailureMessage(map[string]any{}, "raw body")
	if got != "raw body" {
		t.Fatalf("fallback to raw, got %q", got)
	}
}
