package normalize

import model "github.com/okian/doccheck/internal/domain/model"

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithVocabulary sets the fields emitted by NormalizeFieldSet.
func WithVocabulary(v model.Vocabulary) Option {
	return func(n *Normalizer) {
		if len(v) > 0 {
			n.vocab = append(model.Vocabulary(nil), v...)
		}
	}
}

// WithKinds overrides the kind of the given fields. Fields not named keep
// their default kind.
func WithKinds(kinds map[model.Field]Kind) Option {
	return func(n *Normalizer) {
		for f, k := range kinds {
			n.kinds[f] = k
		}
	}
}

// WithFallbackHook is called once per field whose date value could not be parsed.
func WithFallbackHook(fn func(model.Field)) Option {
	return func(n *Normalizer) {
		n.onFallback = fn
	}
}
