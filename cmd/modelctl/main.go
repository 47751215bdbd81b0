package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/user/moodreel/internal/catalog"
	"github.com/user/moodreel/internal/config"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/modelstore"
	"github.com/user/moodreel/internal/mood"
	"github.com/user/moodreel/internal/recommend"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	var (
		app      = kingpin.New("modelctl", "Manage and inspect the recommendation model artifacts.")
		dir      = app.Flag("dir", "artifact directory").Default(cfg.ArtifactDir).String()
		logLevel = app.Flag("log-level", "log level").Default("warn").Enum("debug", "info", "warn", "error")

		fetchCmd   = app.Command("fetch", "Download missing artifacts.")
		fetchForce = fetchCmd.Flag("force", "re-download even if the files exist").Bool()

		inspectCmd = app.Command("inspect", "Print artifact statistics.")

		similarCmd   = app.Command("similar", "Content-based recommendations for a title.")
		similarTitle = similarCmd.Arg("title", "movie title").Required().String()

		predictCmd   = app.Command("predict", "Predicted rating for a user and movie.")
		predictUser  = predictCmd.Arg("user", "user id").Required().Int()
		predictMovie = predictCmd.Arg("movie", "movie id").Required().Int()

		moodCmd      = app.Command("mood", "Build a discovery query from mood answers.")
		moodDiscover = moodCmd.Flag("discover", "run discovery against the catalog").Bool()
	)
	var answers mood.Answers
	moodCmd.Flag("mood", "current mood").StringVar(&answers.Mood)
	moodCmd.Flag("motivation", "looking for motivation").StringVar(&answers.Motivation)
	moodCmd.Flag("watching-with", "audience").StringVar(&answers.WatchingWith)
	moodCmd.Flag("occasion", "occasion").StringVar(&answers.Occasion)
	moodCmd.Flag("time", "time budget").StringVar(&answers.Time)
	moodCmd.Flag("genre", "preferred genre name").StringVar(&answers.Genre)
	moodCmd.Flag("tone", "tone").StringVar(&answers.Tone)
	moodCmd.Flag("romantic", "romance preference").StringVar(&answers.Romantic)
	moodCmd.Flag("pace", "pacing").StringVar(&answers.Pace)
	moodCmd.Flag("release", "release era").StringVar(&answers.Release)
	moodCmd.Flag("mature", "mature content tolerance").StringVar(&answers.Mature)

	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := modelstore.OptionsFromConfig(cfg)
	opts.Dir = *dir

	var err error
	switch command {
	case fetchCmd.FullCommand():
		opts.Force = *fetchForce
		err = fetch(ctx, opts)
	case inspectCmd.FullCommand():
		err = inspect(ctx, opts)
	case similarCmd.FullCommand():
		err = similar(ctx, opts, *similarTitle)
	case predictCmd.FullCommand():
		err = predict(ctx, opts, *predictUser, *predictMovie)
	case moodCmd.FullCommand():
		err = runMood(ctx, cfg, answers, *moodDiscover)
	}
	app.FatalIfError(err, "%s", command)
}

func fetch(ctx context.Context, opts modelstore.Options) error {
	store, errs := modelstore.Load(ctx, opts)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	fmt.Printf("movies: %d  similarity: %v  predictor: %v\n", store.Len(), store.HasSimilarity(), store.HasPredictor())
	if len(errs) > 0 {
		return fmt.Errorf("%d artifact(s) unavailable", len(errs))
	}
	return nil
}

func inspect(ctx context.Context, opts modelstore.Options) error {
	store, errs := modelstore.Load(ctx, opts)
	genres := make(map[string]int)
	for _, m := range store.Movies() {
		for _, g := range m.Genres {
			genres[g]++
		}
	}

	stats := map[string]any{
		"dir":        opts.Dir,
		"movies":     store.Len(),
		"similarity": store.HasSimilarity(),
		"predictor":  store.HasPredictor(),
		"genres":     genres,
	}
	if store.HasSimilarity() {
		stats["similarity_size"] = store.Similarity().Size()
	}
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		stats["errors"] = msgs
	}
	return printJSON(stats)
}

func similar(ctx context.Context, opts modelstore.Options, title string) error {
	store, errs := modelstore.Load(ctx, opts)
	if !store.HasSimilarity() {
		return fmt.Errorf("similarity matrix unavailable: %v", errs)
	}
	recs, err := recommend.New(store, offlineCatalog{}, nil).ContentBasedByTitle(ctx, title)
	if err != nil {
		return err
	}
	for i, r := range recs {
		fmt.Printf("%d. %s (id %d, score %.4f)\n", i+1, r.Title, r.MovieID, r.Score)
	}
	return nil
}

func predict(ctx context.Context, opts modelstore.Options, userID, movieID int) error {
	store, errs := modelstore.Load(ctx, opts)
	pred := store.Predictor()
	if pred == nil {
		return fmt.Errorf("rating model unavailable: %v", errs)
	}
	title := "unknown"
	if m, ok := store.MovieByID(movieID); ok {
		title = m.Title
	}
	fmt.Printf("user %d, movie %d (%s): %.3f", userID, movieID, title, pred.Predict(userID, movieID))
	if !pred.KnowsUser(userID) {
		fmt.Print("  (unknown user, global mean)")
	}
	fmt.Println()
	return nil
}

func runMood(ctx context.Context, cfg *config.Config, answers mood.Answers, discover bool) error {
	if err := answers.Validate(); err != nil {
		return err
	}
	client := catalog.New(catalog.OptionsFromConfig(cfg))

	if !discover {
		var genreMap map[int]string
		if answers.Genre != "" {
			genreMap = client.FetchGenreMap(ctx)
		}
		return printJSON(mood.BuildQuery(answers, genreMap))
	}

	res, err := mood.NewEngine(client).Recommend(ctx, answers)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// offlineCatalog 命令行不请求目录接口
type offlineCatalog struct{}

func (offlineCatalog) FetchPoster(context.Context, int) string { return "" }

func (offlineCatalog) FetchMetadata(context.Context, int) model.MovieMetadata {
	return model.MovieMetadata{}
}

func (offlineCatalog) FetchPopular(context.Context) []model.CatalogMovie { return nil }
