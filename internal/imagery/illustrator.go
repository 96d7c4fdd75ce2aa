package imagery

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
)

// Illustrator renders covers and keeps recent ones in memory.
type Illustrator struct {
	cache *cache.Cache
}

func NewIllustrator(ttl time.Duration) *Illustrator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Illustrator{cache: cache.New(ttl, ttl+5*time.Minute)}
}

func requestKey(req Request) string {
	raw, _ := json.Marshal(req)
	return strconv.FormatUint(xxh3.Hash(raw), 16)
}

// Illustrate analyzes req and renders the cover from the enriched
// request, as a client posting the brief would get it.
func (i *Illustrator) Illustrate(req Request) (Illustration, Brief) {
	brief := Analyze(req)
	key := requestKey(req)
	if hit, ok := i.cache.Get(key); ok {
		return hit.(Illustration), brief
	}
	ill := RenderSVG(brief.Request)
	i.cache.SetDefault(key, ill)
	return ill, brief
}

// Cached reports how many covers are held.
func (i *Illustrator) Cached() int {
	return i.cache.ItemCount()
}
