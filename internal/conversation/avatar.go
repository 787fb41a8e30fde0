package conversation

import (
	"context"
	"log/slog"
	"sync"
)

// AvatarState is the visual state of the consultant avatar.
type AvatarState string

const (
	// StateIdle shows the at-rest avatar image.
	StateIdle AvatarState = "idle"
	// StateTyping shows the composing avatar image.
	StateTyping AvatarState = "typing"
)

// Scale applied to the avatar while each state is displayed. Purely cosmetic.
const (
	idleScale   = 1.0
	typingScale = 1.06
)

const dimOpacity = 0.35

// Surface is the visible avatar element. Source reports the currently
// displayed image source; Dim lowers opacity and applies a scale while a swap
// is in flight; Swap sets a new source at full opacity; Restore returns to
// full opacity without changing the source.
type Surface interface {
	Source() string
	Dim(opacity, scale float64)
	Swap(src string)
	Restore()
}

// AssetFetcher preloads an image asset. A nil error means the asset loaded
// and is safe to display.
type AssetFetcher interface {
	Fetch(ctx context.Context, src string) error
}

// Avatar is the two-state visual controller for the consultant avatar. State
// changes are tracked even when the surface or an asset is missing, in which
// case nothing is rendered.
type Avatar struct {
	mu        sync.Mutex
	state     AvatarState
	idleSrc   string
	typingSrc string

	surface Surface
	fetcher AssetFetcher

	logger *slog.Logger
}

// NewAvatar returns an avatar in the idle state. Either asset may be empty
// and surface may be nil; the machine then degrades to state tracking only.
func NewAvatar(surface Surface, fetcher AssetFetcher, idleSrc, typingSrc string, logger *slog.Logger) *Avatar {
	return &Avatar{
		state:     StateIdle,
		idleSrc:   idleSrc,
		typingSrc: typingSrc,
		surface:   surface,
		fetcher:   fetcher,
		logger:    logger.With(slog.String("module", "avatar")),
	}
}

// State reports the current state.
func (a *Avatar) State() AvatarState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Warm fetches both assets, discarding the results, so the later swap in
// SetState resolves instantly. Callers wanting fire-and-forget semantics run
// it in a goroutine.
func (a *Avatar) Warm(ctx context.Context) {
	if a.fetcher == nil {
		return
	}
	for _, src := range []string{a.idleSrc, a.typingSrc} {
		if src == "" {
			continue
		}
		if err := a.fetcher.Fetch(ctx, src); err != nil {
			a.logger.Debug("Asset warmup failed", slog.String("src", src), slog.String("err", err.Error()))
		}
	}
}

// SetState drives the avatar to target. It is a no-op when the target asset
// is unset or the surface already displays it, which keeps redundant calls
// from reloading the image. Otherwise the surface is dimmed, the target asset
// is preloaded, and the source is swapped only once the asset loaded; a load
// failure restores opacity and keeps the previous image. SetState blocks
// until the swap resolves, so callers drive it from the turn's own goroutine.
func (a *Avatar) SetState(ctx context.Context, target AvatarState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = target

	src := a.src(target)
	if src == "" || a.surface == nil {
		return
	}
	if a.surface.Source() == src {
		return
	}

	scale := idleScale
	if target == StateTyping {
		scale = typingScale
	}
	a.surface.Dim(dimOpacity, scale)

	if a.fetcher != nil {
		if err := a.fetcher.Fetch(ctx, src); err != nil {
			a.logger.Debug("Asset load failed, keeping previous image",
				slog.String("src", src), slog.String("err", err.Error()))
			a.surface.Restore()
			return
		}
	}
	a.surface.Swap(src)
}

func (a *Avatar) src(state AvatarState) string {
	if state == StateTyping {
		return a.typingSrc
	}
	return a.idleSrc
}
