package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/mood"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/repository"
)

func newRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	repos, err := repository.NewCSVRepositories(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVRepositories: %v", err)
	}
	return repos
}

type movieTable []model.Movie

func (m movieTable) Movies() []model.Movie { return m }

func (m movieTable) MovieByID(id int) (model.Movie, bool) {
	for _, mv := range m {
		if mv.ID == id {
			return mv, true
		}
	}
	return model.Movie{}, false
}

var testMovies = movieTable{
	{ID: 1, Title: "Heat", Genres: []string{"Action", "Crime"}, VoteAverage: 7.9, ReleaseDate: "1995-12-15"},
	{ID: 2, Title: "Up", Genres: []string{"Animation", "Family"}, VoteAverage: 7.9, ReleaseDate: "2009-05-28"},
	{ID: 3, Title: "Ronin", Genres: []string{"Action", "Thriller"}, VoteAverage: 6.9, ReleaseDate: "1998-09-25"},
	{ID: 4, Title: "Coco", Genres: []string{"Animation", "Family", "Music"}, VoteAverage: 8.2, ReleaseDate: "2017-10-27"},
	{ID: 5, Title: "Collateral", Genres: []string{"Crime", "Drama"}, VoteAverage: 7.3, ReleaseDate: "2004-08-04"},
	{ID: 6, Title: "Drive", Genres: []string{"Crime", "Drama"}, VoteAverage: 7.6, ReleaseDate: "2011-09-15"},
	{ID: 7, Title: "Thief", Genres: []string{"Crime"}, VoteAverage: 7.2, ReleaseDate: "1981-03-27"},
}

func TestAccountSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(newRepos(t).Users)

	user, err := svc.SignUp(ctx, " ana@example.com ", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.ID != 1 || user.Username != "ana@example.com" {
		t.Errorf("user = %+v", user)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"duplicate email", "ana@example.com", "another1", repository.ErrUserExists},
		{"short password", "bo@example.com", "123", ErrPasswordTooShort},
		{"missing email", "", "secret1", ErrMissingCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.email, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("SignUp err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.SignIn(ctx, "ana@example.com", "secret1"); err != nil {
		t.Errorf("SignIn: %v", err)
	}
	if _, err := svc.SignIn(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestLibraryFlow(t *testing.T) {
	repos := newRepos(t)
	lib := NewLibraryService(repos)
	ctx, nc := notice.NewContext(context.Background())

	if err := lib.MarkWatched(ctx, 1, "Heat", 1); err != nil {
		t.Fatalf("MarkWatched: %v", err)
	}
	if err := lib.Rate(ctx, 1, "Heat", 1, 6, ""); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("rating 6 err = %v", err)
	}
	if err := lib.Rate(ctx, 1, "Heat", 1, 5, "  great  "); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !nc.Has(notice.LevelSuccess) {
		t.Error("expected a success notice")
	}

	added, err := lib.AddToWatchlist(ctx, 1, "Up", 2)
	if err != nil || !added {
		t.Fatalf("AddToWatchlist = %v, %v", added, err)
	}
	if added, _ := lib.AddToWatchlist(ctx, 1, "Up", 2); added {
		t.Error("duplicate watchlist entry added")
	}
	lib.AddToWatchlist(ctx, 1, "Coco", 4)

	list, _ := lib.Watchlist(ctx, 1)
	if got := ShareText(list); got != "My Watchlist: Up, Coco" {
		t.Errorf("ShareText = %q", got)
	}

	history, err := lib.History(ctx, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	// watched, rated, added Up, added Coco；重复加入不记录
	if len(history) != 4 {
		t.Fatalf("expected 4 activity entries, got %d", len(history))
	}
	counts := map[model.ActivityAction]int{}
	for _, a := range history {
		counts[a.Action]++
	}
	if counts[model.ActionWatched] != 1 || counts[model.ActionRated] != 1 || counts[model.ActionAddedToWatchlist] != 2 {
		t.Errorf("activity counts = %v", counts)
	}

	reviews, _ := repos.Reviews.ReviewsByUser(ctx, 1)
	if len(reviews) != 1 || reviews[0].Text != "great" {
		t.Errorf("reviews = %+v", reviews)
	}

	if removed, _ := lib.RemoveFromWatchlist(ctx, 1, 2); !removed {
		t.Error("RemoveFromWatchlist returned false")
	}
	list, _ = lib.Watchlist(ctx, 1)
	if len(list) != 1 || list[0].MovieID != 4 {
		t.Errorf("watchlist = %+v", list)
	}
}

func TestShareTextEmpty(t *testing.T) {
	if got := ShareText(nil); got != "My Watchlist: " {
		t.Errorf("ShareText(nil) = %q", got)
	}
}

func TestProfile(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()
	user, _ := repos.Users.CreateUser(ctx, "p@example.com", "secret1")
	svc := NewProfileService(repos.Users, repos.Reviews)

	p, err := svc.Profile(ctx, user.ID)
	if err != nil || p == nil {
		t.Fatalf("Profile = %v, %v", p, err)
	}
	if p.HasRatings() {
		t.Error("new user should have no ratings")
	}

	repos.Reviews.AddReview(ctx, &model.Review{UserID: user.ID, MovieID: 1, Title: "Heat", Rating: 4})
	repos.Reviews.AddReview(ctx, &model.Review{UserID: user.ID, MovieID: 2, Title: "Up", Rating: 5})
	repos.Reviews.AddReview(ctx, &model.Review{UserID: 99, MovieID: 2, Title: "Up", Rating: 1})

	p, _ = svc.Profile(ctx, user.ID)
	if p.RatingCount != 2 || p.AverageRating != 4.5 {
		t.Errorf("profile = %+v", p)
	}

	if missing, err := svc.Profile(ctx, 42); missing != nil || err != nil {
		t.Errorf("Profile(42) = %v, %v", missing, err)
	}
}

func TestAnalyticsReport(t *testing.T) {
	reviews := []model.Review{
		{UserID: 1, MovieID: 1, Title: "Heat", Rating: 5},
		{UserID: 2, MovieID: 1, Title: "Heat", Rating: 3},
		{UserID: 2, MovieID: 2, Title: "Up", Rating: 4},
		{UserID: 3, MovieID: 2, Title: "Up", Rating: 2},
		{UserID: 2, MovieID: 99, Title: "Gone", Rating: 1},
	}
	r := buildReport(reviews, testMovies)

	if r.TotalRatings != 5 || r.Histogram != [5]int{1, 1, 1, 1, 1} {
		t.Errorf("histogram = %v (total %d)", r.Histogram, r.TotalRatings)
	}
	if r.TopRaters[0] != (Count{Label: "2", Count: 3}) || r.TopRaters[1].Label != "1" {
		t.Errorf("top raters = %+v", r.TopRaters)
	}
	if r.TopReviewed[0].Label != "Heat" || r.TopReviewed[1].Label != "Up" || r.TopReviewed[2].Label != "Gone" {
		t.Errorf("top reviewed = %+v", r.TopReviewed)
	}

	// Action/Crime 来自 Heat（5,3），Animation/Family 来自 Up（4,2）
	if len(r.GenreCounts) != 4 {
		t.Fatalf("genre counts = %+v", r.GenreCounts)
	}
	if r.GenreCounts[0].Genre != "Action" || r.GenreCounts[0].Count != 2 {
		t.Errorf("genre counts = %+v", r.GenreCounts)
	}
	if r.GenreAverages[0].Average != 4 || r.GenreAverages[3].Average != 3 {
		t.Errorf("genre averages = %+v", r.GenreAverages)
	}
}

func TestAnalyticsEmpty(t *testing.T) {
	svc := NewAnalyticsService(newRepos(t).Reviews, nil)
	r, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !r.Empty() || len(r.TopRaters) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestNotificationCheck(t *testing.T) {
	repos := newRepos(t)
	ctx, nc := notice.NewContext(context.Background())
	repos.Reviews.AddReview(ctx, &model.Review{UserID: 1, MovieID: 7, Title: "Thief", Rating: 5})

	svc := NewNotificationService(repos.Reviews, repos.Notifications, testMovies)

	first, err := svc.Check(ctx, 1)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// Crime：Heat, Collateral, Drive, Thief
	if ids := movieIDs(first); !equalInts(ids, []int{1, 5, 6}) {
		t.Errorf("first batch = %v", ids)
	}
	if !nc.Has(notice.LevelInfo) {
		t.Error("expected an info notice")
	}

	second, _ := svc.Check(ctx, 1)
	if ids := movieIDs(second); !equalInts(ids, []int{7}) {
		t.Errorf("second batch = %v", ids)
	}
	if third, _ := svc.Check(ctx, 1); len(third) != 0 {
		t.Errorf("expected nothing left, got %v", movieIDs(third))
	}

	if none, _ := svc.Check(ctx, 2); none != nil {
		t.Errorf("user without ratings got %v", movieIDs(none))
	}
}

type fakeDetailCatalog struct {
	trailer string
	calls   atomic.Int32
}

func (f *fakeDetailCatalog) FetchDetails(_ context.Context, id int) model.MovieDetails {
	f.calls.Add(1)
	return model.MovieDetails{Title: "Unknown", Rating: 7.5, Description: "desc"}
}

func (f *fakeDetailCatalog) FetchPoster(_ context.Context, id int) string {
	f.calls.Add(1)
	return "poster"
}

func (f *fakeDetailCatalog) FetchTrailer(_ context.Context, id int) (string, bool) {
	f.calls.Add(1)
	return f.trailer, f.trailer != ""
}

type fakeSimilar struct{}

func (fakeSimilar) ContentBased(_ context.Context, id int) ([]model.Recommendation, error) {
	return []model.Recommendation{{MovieID: 3, Title: "Ronin"}, {MovieID: 2, Title: "Up"}}, nil
}

func TestMovieDetail(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		repos.Reviews.AddReview(ctx, &model.Review{UserID: i, MovieID: 1, Title: "Heat", Rating: 1 + i%5, Text: "r"})
	}

	cat := &fakeDetailCatalog{trailer: "https://www.youtube.com/watch?v=x"}
	svc := NewMovieDetailService(cat, repos.Reviews, testMovies, fakeSimilar{})

	d, err := svc.Detail(ctx, 1)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if d.Title != "Heat" || len(d.Genres) != 2 {
		t.Errorf("expected movie table fallback, got %+v", d.MovieDetails)
	}
	if !d.HasTrailer() || d.Poster != "poster" {
		t.Errorf("trailer/poster missing: %+v", d)
	}
	if d.ReviewCount != 7 || len(d.RecentReviews) != 5 || d.RecentReviews[4].UserID != 7 {
		t.Errorf("reviews: count %d recent %+v", d.ReviewCount, d.RecentReviews)
	}
	// 评分 2,3,4,5,1,2,3
	if d.AverageRating != 20.0/7.0 {
		t.Errorf("AverageRating = %v", d.AverageRating)
	}
	if len(d.Similar) != 2 || d.Similar[0].Reason.Type != "genre" || !strings.Contains(d.Similar[0].Reason.Text, "Action") {
		t.Errorf("similar = %+v", d.Similar)
	}
	if cat.calls.Load() != 3 {
		t.Errorf("catalog calls = %d", cat.calls.Load())
	}
}

func TestExplainRecommendation(t *testing.T) {
	tests := []struct {
		name     string
		source   model.Movie
		target   model.Movie
		wantType string
	}{
		{"core genre", testMovies[0], testMovies[2], "genre"},
		{"non-core genre", testMovies[1], testMovies[3], "genre"},
		{
			"same era and rating",
			model.Movie{Genres: []string{"Western"}, VoteAverage: 7, ReleaseDate: "2001-01-01"},
			model.Movie{Genres: []string{"Music"}, VoteAverage: 7.5, ReleaseDate: "2002-01-01"},
			"era_rating",
		},
		{
			"rating only",
			model.Movie{Genres: []string{"Western"}, VoteAverage: 7, ReleaseDate: "1950-01-01"},
			model.Movie{Genres: []string{"Music"}, VoteAverage: 7.2, ReleaseDate: "2020-01-01"},
			"rating",
		},
		{
			"nothing in common",
			model.Movie{Genres: []string{"Western"}, VoteAverage: 2, ReleaseDate: "1950-01-01"},
			model.Movie{Genres: []string{"Music"}, VoteAverage: 9, ReleaseDate: "2020-01-01"},
			"general",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExplainRecommendation(tt.source, tt.target)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q (%q), want %q", got.Type, got.Text, tt.wantType)
			}
			if got.Text == "" {
				t.Error("empty reason text")
			}
		})
	}
}

func TestSessionState(t *testing.T) {
	s := NewSessionState(0)
	if snap := s.Get("missing"); snap.LastStrategy != "" || snap.MoodResult != nil {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}

	s.Update("sid", func(snap *SessionSnapshot) {
		snap.MoodAnswers = mood.Answers{Mood: "Happy"}
		snap.LastStrategy = "hybrid"
	})
	s.Update("sid", func(snap *SessionSnapshot) {
		snap.SelectedMovie = 42
	})
	s.Update("", func(snap *SessionSnapshot) { snap.SelectedMovie = 1 })

	snap := s.Get("sid")
	if snap.MoodAnswers.Mood != "Happy" || snap.LastStrategy != "hybrid" || snap.SelectedMovie != 42 {
		t.Errorf("snapshot = %+v", snap)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}

	s.Clear("sid")
	if s.Get("sid").SelectedMovie != 0 {
		t.Error("Clear did not remove the session")
	}
}

func TestCleanupService(t *testing.T) {
	dir := t.TempDir()
	repos, err := repository.NewCSVRepositories(dir)
	if err != nil {
		t.Fatal(err)
	}
	backup := filepath.Join(dir, "users_corrupted_20240101_000000.csv")
	if err := os.WriteFile(backup, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sessions := NewSessionState(time.Millisecond)
	sessions.Update("sid", func(s *SessionSnapshot) { s.SelectedMovie = 1 })
	time.Sleep(5 * time.Millisecond)

	svc := NewCleanupService(repos, sessions, time.Hour, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	svc.runCleanup()

	if sessions.Len() != 0 {
		t.Errorf("expired session kept, Len = %d", sessions.Len())
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Error("expired backup not removed")
	}
}

func movieIDs(movies []model.Movie) []int {
	ids := make([]int, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type failingReviews struct{}

func (failingReviews) AddReview(context.Context, *model.Review) error {
	return errors.New("disk full")
}
func (failingReviews) ListReviews(context.Context) ([]model.Review, error) { return nil, nil }
func (failingReviews) ReviewsByUser(context.Context, int) ([]model.Review, error) {
	return nil, nil
}
func (failingReviews) ReviewsByMovie(context.Context, int) ([]model.Review, error) {
	return nil, nil
}

type recordingActivity struct {
	logged []model.Activity
}

func (r *recordingActivity) LogActivity(_ context.Context, a *model.Activity) error {
	r.logged = append(r.logged, *a)
	return nil
}

func (r *recordingActivity) ActivityByUser(context.Context, int) ([]model.Activity, error) {
	return r.logged, nil
}

func TestRateWithoutSavedReviewLogsNoActivity(t *testing.T) {
	activity := &recordingActivity{}
	svc := &LibraryService{reviews: failingReviews{}, activity: activity}

	ctx, nc := notice.NewContext(context.Background())
	if err := svc.Rate(ctx, 1, "Heat", 10, 4, "good"); err == nil {
		t.Fatal("expected the review error")
	}
	if len(activity.logged) != 0 {
		t.Errorf("activity logged without a review: %+v", activity.logged)
	}
	if nc.Has(notice.LevelSuccess) {
		t.Error("success notice for a failed rating")
	}
}
