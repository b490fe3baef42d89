package pulse

import "github.com/arkilian/pulse/pkg/types"

// TrackButtonTap tracks a button tap attributed to the most recent screen.
func (a *Analytics) TrackButtonTap(name string, params map[string]types.Value) {
	merged := mergeParams(params, map[string]types.Value{
		ParamButtonName: types.String(name),
	})
	a.Track(EventButtonTap, a.attributeToLastView(merged), Always)
}

// TrackEngagement tracks a user engagement action attributed to the most
// recent screen.
func (a *Analytics) TrackEngagement(action string, params map[string]types.Value) {
	merged := mergeParams(params, map[string]types.Value{
		ParamAction: types.String(action),
	})
	a.Track(EventEngagement, a.attributeToLastView(merged), Always)
}

// TrackError tracks an application error.
func (a *Analytics) TrackError(domain, message string, params map[string]types.Value) {
	a.Track(EventErrorShow, mergeParams(params, map[string]types.Value{
		ParamDomain:  types.String(domain),
		ParamMessage: types.String(message),
	}), Always)
}

// TrackErrorCorrected tracks the recovery from a previously tracked error.
func (a *Analytics) TrackErrorCorrected(domain, message string, params map[string]types.Value) {
	a.Track(EventErrorCorrected, mergeParams(params, map[string]types.Value{
		ParamDomain:  types.String(domain),
		ParamMessage: types.String(message),
	}), Always)
}

// TrackPermission tracks the outcome of a permission prompt.
func (a *Analytics) TrackPermission(name string, granted bool) {
	a.Track(EventPermission, map[string]types.Value{
		ParamPermission: types.String(name),
		ParamGranted:    types.Bool(granted),
	}, Always)
}

// TrackOnboardingStep tracks progress through the onboarding funnel.
func (a *Analytics) TrackOnboardingStep(step int, name string) {
	a.Track(EventOnboardingStep, map[string]types.Value{
		ParamStep:     types.Int32(int32(step)),
		ParamStepName: types.String(name),
	}, Always)
}

// TrackSignup tracks a completed account signup.
func (a *Analytics) TrackSignup(method string) {
	a.Track(EventSignup, map[string]types.Value{
		ParamMethod: types.String(method),
	}, Always)
}

// TrackPaywallShow tracks a paywall impression.
func (a *Analytics) TrackPaywallShow(source, offering string) {
	a.Track(EventPaywallShow, map[string]types.Value{
		ParamSource:   types.String(source),
		ParamOffering: types.String(offering),
	}, Always)
}

// TrackPaywallDismiss tracks a paywall dismissed without purchase.
func (a *Analytics) TrackPaywallDismiss(source, reason string) {
	a.Track(EventPaywallDismiss, map[string]types.Value{
		ParamSource: types.String(source),
		ParamReason: types.String(reason),
	}, Always)
}

// TrackSubscriptionStart tracks a new subscription and updates the
// subscription state properties.
func (a *Analytics) TrackSubscriptionStart(product, period string) {
	a.Track(EventSubscriptionStart, subscriptionParams(product, period), Always)
	a.setSubscriptionState("active", product)
}

// TrackSubscriptionRenew tracks a subscription renewal.
func (a *Analytics) TrackSubscriptionRenew(product, period string) {
	a.Track(EventSubscriptionRenew, subscriptionParams(product, period), Always)
	a.setSubscriptionState("active", product)
}

// TrackSubscriptionExpire tracks a lapsed subscription.
func (a *Analytics) TrackSubscriptionExpire(product, period string) {
	a.Track(EventSubscriptionExpire, subscriptionParams(product, period), Always)
	a.setSubscriptionState("expired", product)
}

// TrackPurchase tracks a one-time purchase.
func (a *Analytics) TrackPurchase(product string, price float64, currency string) {
	a.Track(EventPurchase, map[string]types.Value{
		ParamProductID: types.String(product),
		ParamPrice:     types.Float64(price),
		ParamCurrency:  types.String(currency),
	}, Always)
}

func subscriptionParams(product, period string) map[string]types.Value {
	return map[string]types.Value{
		ParamProductID: types.String(product),
		ParamPeriod:    types.String(period),
	}
}

func (a *Analytics) setSubscriptionState(state, product string) {
	stateValue := types.String(state)
	a.Set(PropertySubscriptionState, &stateValue)
	productValue := types.String(product)
	a.Set(PropertySubscriptionProduct, &productValue)
}

// mergeParams merges base over extra, with base keys winning.
func mergeParams(base, extra map[string]types.Value) map[string]types.Value {
	merged := make(map[string]types.Value, len(base)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range base {
		merged[k] = v
	}
	return merged
}

// stuckReporter plugs the watchdog into the facade's error helpers.
type stuckReporter struct {
	a *Analytics
}

// ReportStuck reports a screen that failed to transition in time.
func (r *stuckReporter) ReportStuck(params map[string]types.Value) {
	r.a.Track(EventErrorShow, mergeParams(params, map[string]types.Value{
		ParamDomain:  types.String("ui"),
		ParamMessage: types.String("view stuck"),
	}), Always)
}

// ReportCorrected reports a stuck screen that transitioned within the
// correction window.
func (r *stuckReporter) ReportCorrected(params map[string]types.Value) {
	r.a.Track(EventErrorCorrected, mergeParams(params, map[string]types.Value{
		ParamDomain:  types.String("ui"),
		ParamMessage: types.String("view stuck"),
	}), Always)
}
