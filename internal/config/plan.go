package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Plan is the commercial configuration of the access grant: what the charge
// costs, how long the entitlement lasts, and the fixed identifiers the
// provider requires on every charge. It is deliberately not per-user.
type Plan struct {
	PriceCents   int    `mapstructure:"priceCents"`
	AccessDays   int    `mapstructure:"accessDays"`
	ExpireInDays int    `mapstructure:"expireInDays"`
	OfferHash    string `mapstructure:"offerHash"`
	ProductHash  string `mapstructure:"productHash"`
	ProductTitle string `mapstructure:"productTitle"`

	Customer PlanCustomer `mapstructure:"customer"`
}

// PlanCustomer is the fixed customer profile sent on every charge. The
// provider requires one; the real buyer identity lives in the tracking
// correlation token instead.
type PlanCustomer struct {
	Name        string `mapstructure:"name"`
	Email       string `mapstructure:"email"`
	PhoneNumber string `mapstructure:"phoneNumber"`
	Document    string `mapstructure:"document"`
}

func DefaultPlan() Plan {
	return Plan{
		PriceCents:   2990,
		AccessDays:   30,
		ExpireInDays: 1,
		ProductTitle: "Acesso VIP - 30 dias",
		Customer: PlanCustomer{
			Name:        "Cliente VIP",
			Email:       "cliente@exemplo.com",
			PhoneNumber: "11999999999",
			Document:    "00000000000",
		},
	}
}

// PlanHolder carries the current Plan and hot-reloads it when plan.yml
// changes on disk.
type PlanHolder struct {
	current atomic.Value // holds Plan
}

func NewPlanHolder(log *zap.Logger) (*PlanHolder, error) {
	log = log.Named("plan")

	v := viper.New()
	v.SetConfigName("plan")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pixgate/config")
	v.AddConfigPath("/etc/pixgate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PIXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPlan()
	v.SetDefault("plan.priceCents", defaults.PriceCents)
	v.SetDefault("plan.accessDays", defaults.AccessDays)
	v.SetDefault("plan.expireInDays", defaults.ExpireInDays)
	v.SetDefault("plan.productTitle", defaults.ProductTitle)
	v.SetDefault("plan.customer", defaults.Customer)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var plan Plan
	if err := v.UnmarshalKey("plan", &plan); err != nil {
		return nil, err
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	holder := &PlanHolder{}
	holder.current.Store(plan)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Plan
		if err := v.UnmarshalKey("plan", &updated); err != nil {
			log.Warn("plan reload failed", zap.Error(err))
			return
		}
		if err := validatePlan(updated); err != nil {
			log.Warn("invalid plan ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan reloaded", zap.String("source", e.Name))
	})

	return holder, nil
}

func (h *PlanHolder) Get() Plan {
	return h.current.Load().(Plan)
}

// NewStaticPlanHolder wraps a fixed plan, for tests.
func NewStaticPlanHolder(plan Plan) *PlanHolder {
	holder := &PlanHolder{}
	holder.current.Store(plan)
	return holder
}

func validatePlan(plan Plan) error {
	if plan.PriceCents <= 0 {
		return errors.New("plan.priceCents must be positive")
	}
	if plan.AccessDays <= 0 {
		return errors.New("plan.accessDays must be positive")
	}
	if plan.ExpireInDays <= 0 {
		return errors.New("plan.expireInDays must be positive")
	}
	return nil
}
