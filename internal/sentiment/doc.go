// Package sentiment contains the core analysis pipeline: the model
// catalog, the lazy-loading model registry, the label normalizer that
// maps model-native outputs onto the canonical three-way taxonomy, and
// the fingerprint result cache.
package sentiment
