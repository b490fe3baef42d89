package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pulse/sink/sinktest"
	"github.com/arkilian/pulse/store"
)

func TestHelpers_ErrorAndCorrection(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackError("network", "request failed", nil)
	a.TrackErrorCorrected("network", "request failed", nil)

	errs := findEvents(rec, "pulse_error_show")
	require.Len(t, errs, 1)
	assert.Equal(t, "network", errs[0].Params[ParamDomain].String())
	assert.Equal(t, "request failed", errs[0].Params[ParamMessage].String())
	assert.Len(t, findEvents(rec, "pulse_error_corrected"), 1)
}

func TestHelpers_PermissionAndOnboarding(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackPermission("camera", false)
	a.TrackOnboardingStep(2, "choose_plan")
	a.TrackSignup("email")

	perms := findEvents(rec, "pulse_permission")
	require.Len(t, perms, 1)
	assert.False(t, perms[0].Params[ParamGranted].BoolValue())

	steps := findEvents(rec, "pulse_onboarding_step")
	require.Len(t, steps, 1)
	assert.Equal(t, int64(2), steps[0].Params[ParamStep].Int64Value())
	assert.Equal(t, "choose_plan", steps[0].Params[ParamStepName].String())

	assert.Len(t, findEvents(rec, "pulse_signup"), 1)
}

func TestHelpers_PaywallAndCommerce(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackPaywallShow("onboarding", "annual_offer")
	a.TrackPaywallDismiss("onboarding", "too_expensive")
	a.TrackPurchase("premium.yearly", 59.99, "EUR")

	shows := findEvents(rec, "pulse_paywall_show")
	require.Len(t, shows, 1)
	assert.Equal(t, "annual_offer", shows[0].Params[ParamOffering].String())

	purchases := findEvents(rec, "pulse_purchase")
	require.Len(t, purchases, 1)
	assert.InDelta(t, 59.99, purchases[0].Params[ParamPrice].Float64Value(), 1e-9)
	assert.Equal(t, "EUR", purchases[0].Params[ParamCurrency].String())
}

func TestHelpers_SubscriptionMaintainsProperties(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackSubscriptionStart("premium.monthly", "P1M")

	state, ok := a.Get(PropertySubscriptionState)
	require.True(t, ok)
	assert.Equal(t, "active", state)
	product, _ := a.Get(PropertySubscriptionProduct)
	assert.Equal(t, "premium.monthly", product)

	a.TrackSubscriptionExpire("premium.monthly", "P1M")
	state, _ = a.Get(PropertySubscriptionState)
	assert.Equal(t, "expired", state)

	assert.Len(t, findEvents(rec, "pulse_subscription_start"), 1)
	assert.Len(t, findEvents(rec, "pulse_subscription_expire"), 1)
}
