// Package sitecontent holds the data model shared by the API and its clients:
// the landing page content document, blog posts and update events.
package sitecontent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// LandingID is the fixed identity of the singleton content document.
const LandingID = "landing"

// Section keys, in the order the landing page renders them.
const (
	SectionHero       = "hero"
	SectionHowItWorks = "howItWorks"
	SectionFeatures   = "features"
	SectionPricing    = "pricing"
	SectionFooter     = "footer"
)

// SectionKeys lists every section a complete document carries.
var SectionKeys = []string{SectionHero, SectionHowItWorks, SectionFeatures, SectionPricing, SectionFooter}

// ContentDocument is the landing page content. A nil section means "not
// present": in a save payload it leaves the stored section untouched.
type ContentDocument struct {
	Hero       *HeroSection       `json:"hero,omitempty" bson:"hero,omitempty"`
	HowItWorks *HowItWorksSection `json:"howItWorks,omitempty" bson:"howItWorks,omitempty"`
	Features   *FeaturesSection   `json:"features,omitempty" bson:"features,omitempty"`
	Pricing    *PricingSection    `json:"pricing,omitempty" bson:"pricing,omitempty"`
	Footer     *FooterSection     `json:"footer,omitempty" bson:"footer,omitempty"`
}

type HeroSection struct {
	Badge        string   `json:"badge" bson:"badge"`
	Headline     string   `json:"headline" bson:"headline"`
	Subheadline  string   `json:"subheadline" bson:"subheadline"`
	PrimaryCta   string   `json:"primaryCta" bson:"primaryCta"`
	SecondaryCta string   `json:"secondaryCta" bson:"secondaryCta"`
	TrustBadges  []string `json:"trustBadges" bson:"trustBadges"`
}

type HowItWorksSection struct {
	SectionTitle string `json:"sectionTitle" bson:"sectionTitle"`
	Heading      string `json:"heading" bson:"heading"`
	Description  string `json:"description" bson:"description"`
	Steps        []Step `json:"steps" bson:"steps"`
}

type Step struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
}

type FeaturesSection struct {
	SectionTitle string        `json:"sectionTitle" bson:"sectionTitle"`
	Heading      string        `json:"heading" bson:"heading"`
	Description  string        `json:"description" bson:"description"`
	Features     []FeatureCard `json:"features" bson:"features"`
}

type FeatureCard struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
}

type PricingSection struct {
	Plans []PricingPlan `json:"plans" bson:"plans"`
}

type PricingPlan struct {
	Name        string   `json:"name" bson:"name"`
	Price       string   `json:"price" bson:"price"`
	Period      string   `json:"period" bson:"period"`
	Description string   `json:"description" bson:"description"`
	Popular     bool     `json:"popular,omitempty" bson:"popular,omitempty"`
	Features    []string `json:"features" bson:"features"`
}

type FooterSection struct {
	Description string `json:"description" bson:"description"`
	Email       string `json:"email" bson:"email"`
}

// Fields returns the sections present in d keyed by their wire name. Saves
// write exactly these keys and leave every other stored section alone; the
// merge is top-level only; a present section replaces the stored one whole.
func (d ContentDocument) Fields() map[string]any {
	fields := make(map[string]any, len(SectionKeys))
	if d.Hero != nil {
		fields[SectionHero] = d.Hero
	}
	if d.HowItWorks != nil {
		fields[SectionHowItWorks] = d.HowItWorks
	}
	if d.Features != nil {
		fields[SectionFeatures] = d.Features
	}
	if d.Pricing != nil {
		fields[SectionPricing] = d.Pricing
	}
	if d.Footer != nil {
		fields[SectionFooter] = d.Footer
	}
	return fields
}

// Merge applies patch on top of d with the same top-level granularity the
// stores use.
func (d ContentDocument) Merge(patch ContentDocument) ContentDocument {
	if patch.Hero != nil {
		d.Hero = patch.Hero
	}
	if patch.HowItWorks != nil {
		d.HowItWorks = patch.HowItWorks
	}
	if patch.Features != nil {
		d.Features = patch.Features
	}
	if patch.Pricing != nil {
		d.Pricing = patch.Pricing
	}
	if patch.Footer != nil {
		d.Footer = patch.Footer
	}
	return d
}

// Clone returns a deep copy of d. Sections and their slices are never shared
// with the copy.
func (d ContentDocument) Clone() ContentDocument {
	var out ContentDocument
	if d.Hero != nil {
		hero := *d.Hero
		hero.TrustBadges = slices.Clone(hero.TrustBadges)
		out.Hero = &hero
	}
	if d.HowItWorks != nil {
		how := *d.HowItWorks
		how.Steps = slices.Clone(how.Steps)
		out.HowItWorks = &how
	}
	if d.Features != nil {
		features := *d.Features
		features.Features = slices.Clone(features.Features)
		out.Features = &features
	}
	if d.Pricing != nil {
		pricing := *d.Pricing
		if pricing.Plans != nil {
			pricing.Plans = make([]PricingPlan, len(d.Pricing.Plans))
			for i, plan := range d.Pricing.Plans {
				plan.Features = slices.Clone(plan.Features)
				pricing.Plans[i] = plan
			}
		}
		out.Pricing = &pricing
	}
	if d.Footer != nil {
		footer := *d.Footer
		out.Footer = &footer
	}
	return out
}

// MissingSections reports the section keys absent from d.
func (d ContentDocument) MissingSections() []string {
	fields := d.Fields()
	var missing []string
	for _, key := range SectionKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// ETag returns a strong entity tag over the JSON encoding of d.
func (d ContentDocument) ETag() string {
	raw, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}
