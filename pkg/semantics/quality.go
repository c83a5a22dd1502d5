package semantics

// Quality tags a result produced by the abstract matcher or evaluator as
// following definitely (Must) or only possibly (May) from its inputs. Once
// a match or evaluation takes a May-quality step, the whole branch is May;
// see combineQuality.
type Quality int

const (
	QualityMust Quality = iota
	QualityMay
)

func (q Quality) String() string {
	if q == QualityMay {
		return "may"
	}
	return "must"
}

// combineQuality folds a new step's quality into an accumulated quality.
// Must-vs-may collapses at the first May step: once any step in a match or
// evaluation is only possibly true, the whole result is May.
func combineQuality(acc, step Quality) Quality {
	if acc == QualityMay || step == QualityMay {
		return QualityMay
	}
	return QualityMust
}

// Quality3 is the three-valued result of a special-equality oracle on an
// external space: the comparison is definitely true, definitely false, or
// it cannot be decided without further abstraction (May).
type Quality3 int

const (
	MustTrue Quality3 = iota
	MustFalse
	May
)

func (q Quality3) String() string {
	switch q {
	case MustTrue:
		return "must-true"
	case MustFalse:
		return "must-false"
	default:
		return "may"
	}
}

// conjQuality3 is logical AND over three-valued equality results, used when
// aggregating the equality of several paired components (e.g. a variant's
// children) into one verdict.
func conjQuality3(a, b Quality3) Quality3 {
	if a == MustFalse || b == MustFalse {
		return MustFalse
	}
	if a == May || b == May {
		return May
	}
	return MustTrue
}

// combineQuality3 folds a dereference quality (whether an address is known
// to denote exactly one value, or may denote one of several under
// abstraction) into an inner three-valued equality verdict. A May
// dereference makes the whole comparison May regardless of what the
// currently-known representative value compares as, because the address
// could denote a different value not yet observed.
func combineQuality3(derefQuality Quality, inner Quality3) Quality3 {
	if derefQuality == QualityMay {
		return May
	}
	return inner
}
