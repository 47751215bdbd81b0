package handler

import (
	"context"

	"github.com/user/moodreel/internal/model"
	"golang.org/x/sync/errgroup"
)

// cardConcurrency 同时请求目录接口的卡片数
const cardConcurrency = 6

// MovieCard 页面上的电影卡片
type MovieCard struct {
	ID          int
	Title       string
	Poster      string
	Rating      float64
	Description string
	TrailerURL  string
	Score       float64
	Source      string
}

// cardsFromCatalog 列表电影转卡片，withTrailer 时补充预告片
func (h *Handler) cardsFromCatalog(ctx context.Context, movies []model.CatalogMovie, withTrailer bool) []MovieCard {
	cards := make([]MovieCard, len(movies))
	for i, m := range movies {
		cards[i] = MovieCard{
			ID:          m.ID,
			Title:       m.Title,
			Poster:      m.Poster,
			Rating:      m.Rating,
			Description: m.Description,
		}
	}
	if !withTrailer {
		return cards
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cardConcurrency)
	for i := range cards {
		g.Go(func() error {
			if url, ok := h.Catalog.FetchTrailer(gctx, cards[i].ID); ok {
				cards[i].TrailerURL = url
			}
			return nil
		})
	}
	g.Wait()
	return cards
}

// cardsFromRecommendations 推荐结果转卡片，评分和简介取目录详情
func (h *Handler) cardsFromRecommendations(ctx context.Context, recs []model.Recommendation) []MovieCard {
	cards := make([]MovieCard, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cardConcurrency)
	for i, r := range recs {
		cards[i] = MovieCard{ID: r.MovieID, Title: r.Title, Poster: r.Poster, Score: r.Score, Source: r.Source}
		g.Go(func() error {
			d := h.Catalog.FetchDetails(gctx, r.MovieID)
			cards[i].Rating = d.Rating
			cards[i].Description = d.Description
			if cards[i].Poster == "" {
				cards[i].Poster = h.Catalog.FetchPoster(gctx, r.MovieID)
			}
			return nil
		})
	}
	g.Wait()
	return cards
}

// cardsFromStore 电影表中的电影转卡片
func (h *Handler) cardsFromStore(ctx context.Context, movies []model.Movie) []MovieCard {
	recs := make([]model.Recommendation, len(movies))
	for i, m := range movies {
		recs[i] = model.Recommendation{MovieID: m.ID, Title: m.Title, Score: m.VoteAverage}
	}
	return h.cardsFromRecommendations(ctx, recs)
}
