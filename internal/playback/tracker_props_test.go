package playback

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/pink-tools/se-player/internal/sound"
)

// TestTracker_ActiveSetMatchesModel drives random operation sequences and
// checks IsPlaying against a plain set after every step.
func TestTracker_ActiveSetMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := sound.NewRegistry()
		if rapid.Bool().Draw(t, "assignCustom1") {
			if err := reg.Assign(sound.Custom1, fileSource{d: time.Second}); err != nil {
				t.Fatalf("assign: %v", err)
			}
		}
		tr := New(reg, &fakeOpener{}, DefaultSettings())
		defer tr.StopAll()

		ids := sound.IDs()
		model := map[sound.ID]bool{}
		muted := false

		playable := func(id sound.ID) bool {
			return !muted && reg.Assigned(id)
		}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			switch op := rapid.IntRange(0, 5).Draw(t, "op"); op {
			case 0:
				_, _ = tr.Play(id)
				if playable(id) {
					model[id] = true
				}
			case 1:
				tr.Stop(id)
				delete(model, id)
			case 2:
				_, _ = tr.Toggle(id)
				if model[id] {
					delete(model, id)
				} else if playable(id) {
					model[id] = true
				}
			case 3:
				tr.StopAll()
				model = map[sound.ID]bool{}
			case 4:
				muted = !muted
				tr.SetMuted(muted)
			case 5:
				tr.SetVolume(rapid.Float64Range(0, 1).Draw(t, "volume"))
			}

			for _, id := range ids {
				if got := tr.IsPlaying(id); got != model[id] {
					t.Fatalf("step %d: IsPlaying(%s)=%v, model says %v", i, id, got, model[id])
				}
				if n := len(tr.Handles(id)); n > 1 {
					t.Fatalf("step %d: %d handles for %s", i, n, id)
				}
			}
		}
	})
}

// TestTracker_ToggleTwiceRestoresState checks the click-again-to-stop round trip.
func TestTracker_ToggleTwiceRestoresState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := New(sound.NewRegistry(), &fakeOpener{}, DefaultSettings())
		defer tr.StopAll()

		presets := sound.Presets()
		for _, id := range presets {
			if rapid.Bool().Draw(t, "pre-"+string(id)) {
				if _, err := tr.Play(id); err != nil {
					t.Fatalf("play %s: %v", id, err)
				}
			}
		}
		before := map[sound.ID]bool{}
		for _, id := range presets {
			before[id] = tr.IsPlaying(id)
		}

		id := rapid.SampledFrom(presets).Draw(t, "toggled")
		_, _ = tr.Toggle(id)
		_, _ = tr.Toggle(id)

		for _, other := range presets {
			if tr.IsPlaying(other) != before[other] {
				t.Fatalf("IsPlaying(%s) changed after double toggle of %s", other, id)
			}
		}
	})
}
