package config

import (
	"time"

	"go-fragseq/fragment"
)

// CallbackFunc returns the callback for a scene fragment, nil for none.
type CallbackFunc func(fc FragmentConfig) fragment.Callback

// Built pairs a scene entry with the fragment made from it.
type Built struct {
	Config   FragmentConfig
	Fragment *fragment.Fragment
}

// BuildScene turns the scene into fragments. In queue mode top-level entries
// without children become leaves and their start is ignored; everywhere else
// fragments are positioned. all lists every fragment built, children included,
// so a host can attach per-fragment outputs.
func (c *Config) BuildScene(mode Mode, cb CallbackFunc) (top []*fragment.Fragment, all []Built, err error) {
	for _, fc := range c.Scene {
		f, err := build(fc, mode == ModeQueue, cb, &all)
		if err != nil {
			return nil, nil, err
		}
		top = append(top, f)
	}
	return top, all, nil
}

func build(fc FragmentConfig, leaf bool, cb CallbackFunc, all *[]Built) (*fragment.Fragment, error) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	var callback fragment.Callback
	if cb != nil && len(fc.Children) == 0 {
		callback = cb(fc)
	}

	var (
		f   *fragment.Fragment
		err error
	)
	switch {
	case len(fc.Children) > 0:
		f, err = fragment.NewComposite(fc.Name, ms(fc.StartMS))
		if err != nil {
			return nil, err
		}
		*all = append(*all, Built{Config: fc, Fragment: f})
		for _, child := range fc.Children {
			cf, err := build(child, false, cb, all)
			if err != nil {
				return nil, err
			}
			if err := f.AddChild(cf); err != nil {
				return nil, err
			}
		}
		return f, nil
	case leaf:
		f, err = fragment.New(fc.Name, ms(fc.DurationMS), callback)
	default:
		f, err = fragment.NewPositioned(fc.Name, ms(fc.DurationMS), ms(fc.StartMS), callback)
	}
	if err != nil {
		return nil, err
	}
	*all = append(*all, Built{Config: fc, Fragment: f})
	return f, nil
}
