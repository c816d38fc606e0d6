package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultPlanIsValid(t *testing.T) {
	require.NoError(t, validatePlan(DefaultPlan()))
}

func TestValidatePlanRejectsNonPositiveValues(t *testing.T) {
	plan := DefaultPlan()
	plan.PriceCents = 0
	assert.Error(t, validatePlan(plan))

	plan = DefaultPlan()
	plan.AccessDays = -1
	assert.Error(t, validatePlan(plan))

	plan = DefaultPlan()
	plan.ExpireInDays = 0
	assert.Error(t, validatePlan(plan))
}

func TestStaticPlanHolder(t *testing.T) {
	plan := DefaultPlan()
	plan.PriceCents = 4990

	holder := NewStaticPlanHolder(plan)
	assert.Equal(t, plan, holder.Get())
}

func TestNewPlanHolderFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPlanHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), holder.Get())
}

func TestNewPlanHolderReadsPlanFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := []byte(`plan:
  priceCents: 4990
  accessDays: 7
  expireInDays: 2
  offerHash: offer-abc
  productHash: prod-abc
  productTitle: Acesso VIP - 7 dias
  customer:
    name: Cliente VIP
    email: cliente@exemplo.com
    phoneNumber: "11999999999"
    document: "00000000000"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.yml"), content, 0o644))

	holder, err := NewPlanHolder(zap.NewNop())
	require.NoError(t, err)

	plan := holder.Get()
	assert.Equal(t, 4990, plan.PriceCents)
	assert.Equal(t, 7, plan.AccessDays)
	assert.Equal(t, 2, plan.ExpireInDays)
	assert.Equal(t, "offer-abc", plan.OfferHash)
	assert.Equal(t, "Acesso VIP - 7 dias", plan.ProductTitle)
}
