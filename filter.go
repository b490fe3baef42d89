package pulse

import (
	"github.com/spaolacci/murmur3"

	"github.com/arkilian/pulse/pkg/types"
)

// SampledFilter returns a Filter predicate admitting roughly percent of
// events, bucketed deterministically by event name so that a given event
// is either always or never sampled for one salt. Changing the salt
// reshuffles the buckets.
func SampledFilter(percent uint32, salt string) FilterFunc {
	if percent >= 100 {
		return func(types.Event, map[string]types.Value) bool { return true }
	}
	return func(event types.Event, _ map[string]types.Value) bool {
		bucket := murmur3.Sum32([]byte(salt+event.Name())) % 100
		return bucket < percent
	}
}
