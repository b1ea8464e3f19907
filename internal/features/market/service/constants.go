package service

// Publish fee tiers, denominated in the wallet currency.
const (
	PublishTierBasic    = "basic"
	PublishTierFeatured = "featured"
	PublishTierPremium  = "premium"
)

var publishFees = map[string]float64{
	PublishTierBasic:    0.5,
	PublishTierFeatured: 1.5,
	PublishTierPremium:  3.0,
}

const (
	artworkCodeLength    = 14
	unlockPasswordLength = 6
)
