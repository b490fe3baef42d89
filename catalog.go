package pulse

import (
	"github.com/arkilian/pulse/internal/dispatch"
	"github.com/arkilian/pulse/internal/watchdog"
	"github.com/arkilian/pulse/pkg/types"
)

// Standard event catalog. These names and their parameter keys are a wire
// contract with downstream data-analysis consumers; changing any of them
// requires bumping Config.AnalyticsVersion.
var (
	EventFirstOpen        = types.NewInternalEvent("first_open")
	EventViewShow         = types.NewInternalEvent("view_show")
	EventButtonTap        = types.NewInternalEvent("button_tap")
	EventAppOpen          = types.NewInternalEvent("app_open")
	EventAppClose         = types.NewInternalEvent("app_close")
	EventErrorShow        = types.NewInternalEvent("error_show")
	EventErrorCorrected   = types.NewInternalEvent("error_corrected")
	EventAppVersionUpdate = types.NewInternalEvent("app_version_update")
	EventOSVersionUpdate  = types.NewInternalEvent("os_version_update")
	EventEngagement       = types.NewInternalEvent("engagement")
	EventPermission       = types.NewInternalEvent("permission")
	EventOnboardingStep   = types.NewInternalEvent("onboarding_step")
	EventSignup           = types.NewInternalEvent("signup")
	EventPaywallShow      = types.NewInternalEvent("paywall_show")
	EventPaywallDismiss   = types.NewInternalEvent("paywall_dismiss")
	EventSubscriptionStart  = types.NewInternalEvent("subscription_start")
	EventSubscriptionRenew  = types.NewInternalEvent("subscription_renew")
	EventSubscriptionExpire = types.NewInternalEvent("subscription_expire")
	EventPurchase         = types.NewInternalEvent("purchase")
)

// Standard property catalog.
var (
	PropertyAnalyticsVersion    = types.NewInternalProperty("analytics_version")
	PropertyInstallType         = types.NewInternalProperty("install_type")
	PropertyInstallAppVersion   = types.NewInternalProperty("install_app_version")
	PropertyInstallOS           = types.NewInternalProperty("install_os")
	PropertyInstallTime         = types.NewInternalProperty("install_time")
	PropertyColdLaunchCount     = types.NewInternalProperty("cold_launch_count")
	PropertyOpenCount           = types.NewInternalProperty("open_count")
	PropertyLastViewShow        = types.NewInternalProperty("last_view_show")
	PropertySubscriptionState   = types.NewInternalProperty("subscription_state")
	PropertySubscriptionProduct = types.NewInternalProperty("subscription_product")
)

// Standard parameter keys.
const (
	ParamViewName        = "view_name"
	ParamViewKind        = "view_kind"
	ParamFunnel          = "funnel"
	ParamDuration        = watchdog.DurationParam
	ParamQueueDuration   = dispatch.QueueDurationParam
	ParamButtonName      = "button_name"
	ParamAction          = "action"
	ParamDomain          = "domain"
	ParamMessage         = "message"
	ParamReason          = "reason"
	ParamPermission      = "permission"
	ParamGranted         = "granted"
	ParamStep            = "step"
	ParamStepName        = "step_name"
	ParamMethod          = "method"
	ParamSource          = "source"
	ParamOffering        = "offering"
	ParamProductID       = "product_id"
	ParamPeriod          = "period"
	ParamPrice           = "price"
	ParamCurrency        = "currency"
	ParamPreviousVersion = "previous_version"
	ParamNewVersion      = "new_version"
	ParamSessionDuration = "session_duration"
)
