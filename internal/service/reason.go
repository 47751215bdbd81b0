package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/user/moodreel/internal/model"
)

// RecommendationReason 推荐理由
type RecommendationReason struct {
	Text       string  `json:"reason"`
	Type       string  `json:"reason_type"`
	Similarity float64 `json:"similarity"`
}

// 核心类型，命中时优先作为推荐理由
var coreGenres = []string{"Science Fiction", "Mystery", "Thriller", "Action", "Comedy", "Romance", "Drama", "War", "History"}

// calculateGenreSimilarity 计算类型重合度
func calculateGenreSimilarity(sourceGenres, targetGenres []string) (float64, []string) {
	commonGenres := []string{}
	for _, source := range sourceGenres {
		for _, target := range targetGenres {
			if source != "" && strings.EqualFold(source, target) {
				commonGenres = append(commonGenres, source)
				break
			}
		}
	}

	maxLen := math.Max(float64(len(sourceGenres)), float64(len(targetGenres)))
	if maxLen == 0 {
		return 0, commonGenres
	}
	return float64(len(commonGenres)) / maxLen, commonGenres
}

// calculateRatingSimilarity 计算评分相似度（TMDB 评分为 10 分制）
func calculateRatingSimilarity(sourceRating, targetRating float64) float64 {
	ratingDiff := math.Abs(sourceRating - targetRating)
	return math.Max(0, 1-ratingDiff/10.0)
}

// calculateEraSimilarity 计算年代相似度
func calculateEraSimilarity(sourceYear, targetYear string) float64 {
	s, err1 := strconv.Atoi(sourceYear)
	t, err2 := strconv.Atoi(targetYear)
	if err1 != nil || err2 != nil || s == 0 || t == 0 {
		return 0.5 // 年份未知
	}

	switch yearDiff := math.Abs(float64(s - t)); {
	case yearDiff <= 1:
		return 1.0
	case yearDiff <= 3:
		return 0.8
	case yearDiff <= 5:
		return 0.6
	case yearDiff <= 10:
		return 0.4
	default:
		return 0.2
	}
}

// ExplainRecommendation 按优先级生成推荐理由：核心类型 > 年代加评分 > 年代 > 评分
func ExplainRecommendation(source, target model.Movie) RecommendationReason {
	genreSimilarity, commonGenres := calculateGenreSimilarity(source.Genres, target.Genres)
	ratingSimilarity := calculateRatingSimilarity(source.VoteAverage, target.VoteAverage)
	eraSimilarity := calculateEraSimilarity(source.Year(), target.Year())

	total := genreSimilarity*0.6 + ratingSimilarity*0.25 + eraSimilarity*0.15
	reason := RecommendationReason{Similarity: total}

	var core []string
	for _, g := range commonGenres {
		for _, c := range coreGenres {
			if strings.EqualFold(g, c) {
				core = append(core, g)
			}
		}
	}
	if len(core) > 0 {
		desc := strings.Join(core, " & ")
		switch {
		case containsFold(core, "Science Fiction"), containsFold(core, "Mystery"), containsFold(core, "Thriller"):
			reason.Text = fmt.Sprintf("Another gripping %s pick with the same mind-bending pull", desc)
		case containsFold(core, "Action"), containsFold(core, "War"):
			reason.Text = fmt.Sprintf("Another %s title with the same adrenaline", desc)
		case containsFold(core, "Comedy"), containsFold(core, "Romance"):
			reason.Text = fmt.Sprintf("Another %s title with a similar feel-good heart", desc)
		default:
			reason.Text = fmt.Sprintf("Shares the %s style", desc)
		}
		reason.Type = "genre"
		return reason
	}

	if len(commonGenres) > 0 {
		reason.Text = "Also " + strings.Join(commonGenres, " & ")
		reason.Type = "genre"
		return reason
	}

	if eraSimilarity > 0.6 && ratingSimilarity > 0.7 {
		years := source.Year()
		if target.Year() != years {
			years = source.Year() + "-" + target.Year()
		}
		reason.Text = fmt.Sprintf("Well-rated from around %s (%.1f vs %.1f)", years, source.VoteAverage, target.VoteAverage)
		reason.Type = "era_rating"
		return reason
	}

	if eraSimilarity > 0.6 {
		reason.Text = fmt.Sprintf("From around %s", source.Year())
		reason.Type = "era"
		return reason
	}

	if ratingSimilarity > 0.8 {
		reason.Text = fmt.Sprintf("Similarly rated (%.1f vs %.1f)", source.VoteAverage, target.VoteAverage)
		reason.Type = "rating"
		return reason
	}

	reason.Text = "Similar story and themes"
	reason.Type = "general"
	return reason
}

func containsFold(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
