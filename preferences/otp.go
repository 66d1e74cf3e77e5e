package preferences

import "context"

// Development OTP staging. When no SMS backend is reachable, the client
// generates a code, stages it here, and verifies against it locally. This is
// a demo continuity path, not a security mechanism.

// StoreDevelopmentOTP stages code for phoneNumber, replacing any earlier
// staged pair.
func (p *UserPreferences) StoreDevelopmentOTP(ctx context.Context, phoneNumber, code string) error {
	return p.Apply(ctx, func(e *Edit) {
		e.Set(KeyDevPhone, phoneNumber)
		e.Set(KeyDevOTP, code)
	})
}

// GetDevelopmentOTP returns the staged code only when the stored phone number
// matches exactly.
func (p *UserPreferences) GetDevelopmentOTP(ctx context.Context, phoneNumber string) (string, bool, error) {
	snapshot, err := p.Snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	if snapshot[KeyDevPhone] != phoneNumber {
		return "", false, nil
	}
	code, ok := snapshot[KeyDevOTP]
	return code, ok, nil
}

// ClearDevelopmentOTP removes the staged pair; codes are single use.
func (p *UserPreferences) ClearDevelopmentOTP(ctx context.Context) error {
	return p.Apply(ctx, func(e *Edit) {
		e.Remove(KeyDevPhone)
		e.Remove(KeyDevOTP)
	})
}
