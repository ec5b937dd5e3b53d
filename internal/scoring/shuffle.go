package scoring

import (
	"hash/fnv"
	"math/rand"

	"github.com/opencbt/opencbt-backend/internal/model"
)

// Order returns the presentation order for an attempt as question ID strings.
// When shuffle is off the authored order is kept. When on, the permutation is
// derived deterministically from the seed, so the same attempt always renders
// the same order while different attempts diverge.
func Order(questions []model.Question, shuffle bool, seed string) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID.String()
	}

	if !shuffle {
		return ids
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}
