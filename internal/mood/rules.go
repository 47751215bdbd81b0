package mood

import (
	"github.com/user/moodreel/internal/model"
)

// TMDB 类型 ID
const (
	Action      = 28
	Adventure   = 12
	Animation   = 16
	Comedy      = 35
	Crime       = 80
	Documentary = 99
	Drama       = 18
	Family      = 10751
	History     = 36
	Romance     = 10749
	SciFi       = 878
	Thriller    = 53
)

// MaxGenres 发现请求中最多携带的类型数
const MaxGenres = 3

var moodGenres = map[string][]int{
	"Happy":    {Comedy, Animation, Adventure},
	"Sad":      {Drama, Romance, Documentary},
	"Stressed": {Comedy, Romance, Family},
	"Excited":  {Action, Thriller, SciFi},
	"Relaxed":  {Drama, Romance, Documentary},
	"Bored":    {Action, Comedy, Adventure},
	"Angry":    {Thriller, Action, Drama},
}

var secondaryGenres = map[string][]int{
	"Happy":    {Family},
	"Sad":      {History},
	"Stressed": {Animation},
	"Excited":  {Adventure},
	"Relaxed":  {Comedy},
	"Bored":    {SciFi},
	"Angry":    {Crime},
}

var toneGenres = map[string][]int{
	"Light-hearted":     {Comedy, Romance},
	"Serious":           {Drama, History},
	"Emotional":         {Drama, Romance},
	"Fun":               {Comedy, Adventure},
	"Epic":              {Adventure, Action},
	"Thought-provoking": {Drama, Documentary},
}

var runtimeCeiling = map[string]int{
	"Less than 1 hour": 90,
	"1-2 hours":        120,
	"2+ hours":         180,
}

const (
	motivationKeywords = "inspirational,motivational"
	releaseSplitYear   = 2010
)

var defaultGenres = []int{Comedy, Drama}

// Query 由问卷推导出的发现条件
type Query struct {
	// RawGenres 去重前按规则顺序收集的类型
	RawGenres      []int  `json:"raw_genres"`
	GenreIDs       []int  `json:"genre_ids"`
	MaxRuntime     int    `json:"max_runtime,omitempty"`
	MinYear        int    `json:"min_year,omitempty"`
	MaxYear        int    `json:"max_year,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
	Adult          bool   `json:"adult"`
	FamilyAudience bool   `json:"family_audience"`
	// Pace 只做展示，不参与过滤
	Pace string `json:"pace,omitempty"`
}

// BuildQuery 按固定规则把问卷翻译成发现条件，相同输入得到相同结果
func BuildQuery(a Answers, genreMap map[int]string) Query {
	var q Query
	var raw []int

	if a.Mood != "" {
		raw = append(raw, moodGenres[a.Mood]...)
		raw = append(raw, secondaryGenres[a.Mood]...)
	}

	if a.Motivation == "Yes" {
		raw = append(raw, Drama, Documentary)
		q.Keywords = motivationKeywords
	}

	if a.WatchingWith == "Kids" || a.WatchingWith == "Family" || a.Occasion == "Family Night" {
		raw = append(raw, Animation, Family)
		q.FamilyAudience = true
	} else if a.Occasion == "Date Night" || a.Romantic == "Yes" {
		raw = append(raw, Romance, Comedy)
	}

	q.MaxRuntime = runtimeCeiling[a.Time]

	if a.Genre != "" {
		if id, ok := genreByName(genreMap, a.Genre); ok {
			raw = append(raw, id)
		}
	}

	if a.Tone != "" {
		raw = append(raw, toneGenres[a.Tone]...)
	}

	switch a.Release {
	case "New (post-2010)":
		q.MinYear = releaseSplitYear
	case "Classics (pre-2010)":
		q.MaxYear = releaseSplitYear
	}

	q.Adult = resolveAdult(a, q.FamilyAudience)
	q.Pace = a.Pace

	q.RawGenres = raw
	q.GenreIDs = dedupe(raw, MaxGenres)
	if len(q.GenreIDs) == 0 {
		q.GenreIDs = append([]int(nil), defaultGenres...)
	}
	return q
}

// resolveAdult 成人内容开关，优先级从高到低：
//  1. Mature 明确回答 Yes / No
//  2. 家庭观众一律关闭
//  3. 默认关闭
func resolveAdult(a Answers, family bool) bool {
	switch a.Mature {
	case "Yes":
		return true
	case "No":
		return false
	}
	if family {
		return false
	}
	return false
}

// genreByName 按名称查找类型 ID；同名时取最小 ID 以保证结果稳定
func genreByName(genreMap map[int]string, name string) (int, bool) {
	found := false
	best := 0
	for id, n := range genreMap {
		if n != name {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// dedupe 按首次出现顺序去重并截断
func dedupe(ids []int, limit int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, limit)
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Variants 依次放宽的四种发现条件
//  1. 全部条件，第 1 页
//  2. 去掉片长和关键词，第 1 页
//  3. 同 2，随机页码
//  4. 只保留类型和成人开关，第 1 页
func (q Query) Variants(randomPage int) []model.DiscoverQuery {
	base := model.DiscoverQuery{GenreIDs: q.GenreIDs, Adult: q.Adult, Page: 1}

	full := base
	full.MaxRuntime = q.MaxRuntime
	full.MinYear = q.MinYear
	full.MaxYear = q.MaxYear
	full.Keywords = q.Keywords

	years := base
	years.MinYear = q.MinYear
	years.MaxYear = q.MaxYear

	randomized := years
	randomized.Page = randomPage

	return []model.DiscoverQuery{full, years, randomized, base}
}
