package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/models"
)

func benchCatalog(n int) []*models.Product {
	colors := []string{"red", "blue", "green", "black", "white"}
	kinds := []string{"shoe", "hat", "shirt", "scarf", "bag", "belt"}
	out := make([]*models.Product, n)
	for i := range out {
		out[i] = &models.Product{
			ID:          fmt.Sprintf("p%d", i),
			Name:        fmt.Sprintf("%s %s", colors[i%len(colors)], kinds[i%len(kinds)]),
			Brand:       fmt.Sprintf("brand%d", i%17),
			Description: fmt.Sprintf("model %d in the %s line", i, kinds[(i/3)%len(kinds)]),
			IsActive:    true,
		}
	}
	return out
}

func BenchmarkBuildGeneration(b *testing.B) {
	products := benchCatalog(5000)
	cfg := config.Default()
	opts := BuildOptions{IndexType: cfg.Index.Type}
	opts.Featurizer.MaxFeatures = cfg.Featurizer.MaxFeatures
	opts.Featurizer.NGramMin, opts.Featurizer.NGramMax = 1, 2
	opts.Featurizer.MinTokenLength = 2
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildGeneration(context.Background(), products, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRecommend(b *testing.B) {
	for _, indexType := range []string{"memory", "parallel"} {
		b.Run(indexType, func(b *testing.B) {
			cfg := config.Default()
			cfg.Index.Type = indexType
			cfg.Recommend.CacheSize = -1
			e := NewEngine(&fakeSource{products: benchCatalog(5000)}, cfg)
			ctx := context.Background()
			if _, err := e.Train(ctx); err != nil {
				b.Fatal(err)
			}
			cart := []string{"p1", "p42", "p999"}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Recommend(ctx, cart, 8); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
