package draft

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/omelentjeff/product-management-app/internal/model"
)

func ptr(f float64) *float64 { return &f }

func sample() model.Product {
	return model.Product{
		ID:              4,
		Name:            "Oat milk",
		Manufacturer:    "Oatly",
		Weight:          ptr(1000),
		GTIN:            "7394376616037",
		NutritionalFact: model.NutritionalFact{"calories": ptr(46), "sodium": ptr(0.1)},
	}
}

func TestSet_FieldByField(t *testing.T) {
	t.Parallel()

	src := sample()
	d := FromProduct(src)
	require.False(t, d.Dirty())

	require.NoError(t, d.Set("name", "Oat drink"))
	require.NoError(t, d.Set("weight", "750"))
	require.NoError(t, d.Set("sodium", ""))
	require.NoError(t, d.Set("nutritionalFact.protein", "1.1"))
	require.True(t, d.Dirty())

	p := d.Product()
	require.Equal(t, "Oat drink", p.Name)
	require.Equal(t, 750.0, *p.Weight)
	require.Nil(t, p.NutritionalFact["sodium"])
	require.Equal(t, 1.1, *p.NutritionalFact["protein"])
	require.Equal(t, "Oatly", p.Manufacturer)

	// the source product is untouched
	require.Equal(t, "Oat milk", src.Name)
	require.Equal(t, 0.1, *src.NutritionalFact["sodium"])
	require.NotContains(t, src.NutritionalFact, "protein")
}

func TestSet_Rejects(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.Error(t, d.Set("colour", "red"))
	require.Error(t, d.Set("weight", "heavy"))
	require.Error(t, d.Set("nutritionalFact.fat", "x"))
	require.Error(t, d.Set("nutritionalFact.unknown", "1"))
	require.False(t, d.Dirty())
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.NoError(t, d.Set("name", ""))
	d.ApplyErrors(&errs.ValidationError{Fields: errs.ParseDetails([]string{"name: must not be blank"})})

	d.Discard()
	require.False(t, d.Dirty())
	require.Equal(t, "Oat milk", d.Product().Name)
	require.Empty(t, d.Error("name"))
}

func TestInput(t *testing.T) {
	t.Parallel()

	in := Empty().Input()
	require.NotNil(t, in.NutritionalFact)
	require.Nil(t, in.Weight)

	in = FromProduct(sample()).Input()
	require.Equal(t, "Oat milk", in.Name)
	require.Equal(t, "7394376616037", in.GTIN)
	require.Equal(t, 46.0, *in.NutritionalFact["calories"])
}

func TestApplyErrors_BlankNameOnlyAffectsName(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.NoError(t, d.Set("name", ""))

	err := &errs.ValidationError{
		Message: "Validation failed!",
		Fields:  errs.ParseDetails([]string{"name: must not be blank"}),
	}
	require.True(t, d.ApplyErrors(err))

	require.Equal(t, "must not be blank", d.Error("name"))
	for _, f := range []string{"manufacturer", "weight", "gtin", "sodium", "nutritionalFact.calories"} {
		require.Empty(t, d.Error(f), f)
	}
	require.Equal(t, []Section{SectionDetails}, d.SectionErrors())
	require.Equal(t, map[string]string{"name": "must not be blank"}, d.Errors())
}

func TestApplyErrors_NutritionSection(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.True(t, d.ApplyErrors(&errs.ValidationError{Fields: errs.ParseDetails([]string{
		"nutritionalFact.calories: Field can't be empty",
		"weight: must be positive",
	})}))

	require.Equal(t, "Field can't be empty", d.Error("calories"))
	require.Equal(t, "Field can't be empty", d.Error("nutritionalFact.calories"))
	require.Equal(t, []Section{SectionDetails, SectionNutrition}, d.SectionErrors())
	require.Equal(t, []string{"nutritionalFact.calories", "weight"}, d.SortedErrorPaths())

	d.ClearErrors()
	require.Empty(t, d.SectionErrors())
}

func TestApplyErrors_OtherErrorsIgnored(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.False(t, d.ApplyErrors(errors.New("network down")))
	require.False(t, d.ApplyErrors(&errs.APIError{Status: 500}))
	require.Empty(t, d.Errors())
}

func TestApplyJSON(t *testing.T) {
	t.Parallel()

	d := FromProduct(sample())
	require.NoError(t, d.ApplyJSON([]byte(`{"manufacturer":"Oatly AB","nutritionalFact":{"fat":1.5,"sodium":null}}`)))

	p := d.Product()
	require.Equal(t, "Oat milk", p.Name)
	require.Equal(t, "Oatly AB", p.Manufacturer)
	require.Equal(t, 1.5, *p.NutritionalFact["fat"])
	require.Nil(t, p.NutritionalFact["sodium"])
	require.Equal(t, 46.0, *p.NutritionalFact["calories"])
	require.True(t, d.Dirty())

	before := d.Product()
	require.Error(t, d.ApplyJSON([]byte(`{"colour":"red"}`)))
	require.Error(t, d.ApplyJSON([]byte(`{"nutritionalFact":{"caffeine":3}}`)))
	require.Error(t, d.ApplyJSON([]byte(`{`)))
	require.Equal(t, before, d.Product())
}
