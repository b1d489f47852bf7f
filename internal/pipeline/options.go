package pipeline

import (
	"github.com/ricesearch/contact-eval/internal/config"
	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/evaluation"
	"github.com/ricesearch/contact-eval/internal/pdb"
	"github.com/ricesearch/contact-eval/internal/prediction"
)

// Options are the parsed evaluation parameters of a run.
type Options struct {
	Cutoff   float64 // contact distance cutoff, 0 = unset
	Atom     pdb.AtomSelection
	Range    contact.Range
	Cutoffs  prediction.Cutoffs
	Missing  evaluation.MissingPolicy
	TieBreak evaluation.TieBreak
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Atom:     pdb.SelectCA,
		Range:    contact.DefaultRange,
		Missing:  evaluation.MissingDrop,
		TieBreak: evaluation.TieDescending,
	}
}

// OptionsFromConfig parses the string-valued settings of cfg.
func OptionsFromConfig(cfg config.EvaluationConfig) (Options, error) {
	atom, err := pdb.ParseAtomSelection(cfg.Atom)
	if err != nil {
		return Options{}, err
	}
	r, err := contact.ParseRange(cfg.Range)
	if err != nil {
		return Options{}, err
	}
	missing, err := evaluation.ParseMissingPolicy(cfg.Missing)
	if err != nil {
		return Options{}, err
	}
	tb, err := evaluation.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Cutoff: cfg.Cutoff,
		Atom:   atom,
		Range:  r,
		Cutoffs: prediction.Cutoffs{
			All:    cfg.CutoffAll,
			Short:  cfg.CutoffShort,
			Medium: cfg.CutoffMedium,
			Long:   cfg.CutoffLong,
		},
		Missing:  missing,
		TieBreak: tb,
	}, nil
}

func (o Options) predictionOptions() prediction.Options {
	return prediction.Options{Range: o.Range, Cutoffs: o.Cutoffs}
}

func (o Options) compareOptions() evaluation.CompareOptions {
	return evaluation.CompareOptions{
		Cutoff:   o.Cutoff,
		Missing:  o.Missing,
		TieBreak: o.TieBreak,
	}
}
