// Package domain provides shared domain types for the inkwell AI generation
// orchestration layer. These types are used across all internal packages to
// ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"fmt"

	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Feature identifies one independently toggleable AI-assisted operation,
// such as generating alt text for an image.
type Feature string

// Feature constants define the closed feature catalog.
const (
	FeatureImageAltText         Feature = "image_alt_text"
	FeatureImageTitle           Feature = "image_title"
	FeatureImageCaption         Feature = "image_caption"
	FeatureImageDescription     Feature = "image_description"
	FeaturePostTitle            Feature = "post_title"
	FeaturePostExcerpt          Feature = "post_excerpt"
	FeaturePostTags             Feature = "post_tags"
	FeatureSEOTitle             Feature = "seo_title"
	FeatureSEOMetaDescription   Feature = "seo_meta_description"
	FeatureGrammarCorrection    Feature = "grammar_correction"
	FeatureCustomiseTextRewrite Feature = "customise_text_rewrite"
	FeatureFAQSection           Feature = "faq_section"
	FeatureSummarySection       Feature = "summary_section"
	FeatureImageGeneration      Feature = "image_generation"
)

// AllFeatures returns every supported feature in catalog order.
func AllFeatures() []Feature {
	return []Feature{
		FeatureImageAltText,
		FeatureImageTitle,
		FeatureImageCaption,
		FeatureImageDescription,
		FeaturePostTitle,
		FeaturePostExcerpt,
		FeaturePostTags,
		FeatureSEOTitle,
		FeatureSEOMetaDescription,
		FeatureGrammarCorrection,
		FeatureCustomiseTextRewrite,
		FeatureFAQSection,
		FeatureSummarySection,
		FeatureImageGeneration,
	}
}

// String returns the string representation of the Feature.
func (f Feature) String() string {
	return string(f)
}

// IsValid checks if the feature is part of the catalog.
func (f Feature) IsValid() bool {
	for _, known := range AllFeatures() {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFeature converts a raw key into a Feature.
func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", inkerrors.ErrUnknownFeature, s)
	}
	return f, nil
}

// Operation returns the operation kind used to derive the capabilities a
// feature needs. Unknown features return an empty kind.
func (f Feature) Operation() OperationKind {
	switch f {
	case FeatureImageAltText, FeatureImageTitle, FeatureImageCaption, FeatureImageDescription:
		return OperationAltTextFromImage
	case FeatureImageGeneration:
		return OperationImageGeneration
	case FeaturePostTitle, FeaturePostExcerpt, FeaturePostTags, FeatureSEOTitle,
		FeatureSEOMetaDescription, FeatureGrammarCorrection, FeatureCustomiseTextRewrite,
		FeatureFAQSection, FeatureSummarySection:
		return OperationText
	}
	return ""
}
