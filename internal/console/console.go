// Package console is the operator's control surface: a line-oriented
// command interpreter driving the live-state tracker, the style resolver
// and the library.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/genricoloni/versecast/internal/control"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/style"
	"go.uber.org/zap"
)

// ErrQuit is returned by Execute for the quit command
var ErrQuit = errors.New("quit")

// Library is the storage the console manages
type Library interface {
	domain.Library
	ExportSongsFile(ctx context.Context, path string) (int, error)
	ImportSongsFile(ctx context.Context, path string) (int, error)
	ImportVersionFile(ctx context.Context, version, path string) error
}

type command struct {
	usage string
	run   func(ctx context.Context, args string) error
}

// Console interprets operator commands
type Console struct {
	logger   *zap.Logger
	out      io.Writer
	tracker  *control.Tracker
	styles   *style.Resolver
	lib      Library
	window   domain.WindowController
	commands map[string]command
}

// New creates a console writing its replies to out
func New(logger *zap.Logger, out io.Writer, tracker *control.Tracker, styles *style.Resolver, lib Library, window domain.WindowController) *Console {
	c := &Console{
		logger:  logger,
		out:     out,
		tracker: tracker,
		styles:  styles,
		lib:     lib,
		window:  window,
	}
	c.commands = map[string]command{
		"help":        {"help", c.help},
		"quit":        {"quit", func(context.Context, string) error { return ErrQuit }},
		"open":        {"open", c.open},
		"close":       {"close", c.close},
		"status":      {"status", c.status},
		"versions":    {"versions", c.versions},
		"version":     {"version <name>", c.version},
		"books":       {"books", c.books},
		"chapter":     {"chapter <book> <n>", c.chapter},
		"go":          {"go <book chapter[:verse]>", c.search},
		"suggest":     {"suggest <prefix>", c.suggest},
		"next":        {"next", c.key(control.KeyDown)},
		"prev":        {"prev", c.key(control.KeyUp)},
		"list":        {"list", c.list},
		"show":        {"show <row>", c.show},
		"songs":       {"songs", c.songs},
		"song":        {"song <id>", c.song},
		"addsong":     {`addsong <title> | <lyrics, \n for newline>`, c.addSong},
		"editsong":    {`editsong <id> <title> | <lyrics>`, c.editSong},
		"delsong":     {"delsong <id>", c.deleteSong},
		"images":      {"images", c.images},
		"image":       {"image <id>", c.image},
		"addimage":    {"addimage <path>", c.addImage},
		"delimage":    {"delimage <id>", c.deleteImage},
		"fit":         {"fit <id> contain|cover|fill", c.fit},
		"videos":      {"videos", c.videos},
		"video":       {"video <id>", c.video},
		"addvideo":    {"addvideo <path>", c.addVideo},
		"delvideo":    {"delvideo <id>", c.deleteVideo},
		"loop":        {"loop <id> on|off", c.loop},
		"pdfs":        {"pdfs", c.pdfs},
		"pdf":         {"pdf <id> [page]", c.pdf},
		"addpdf":      {"addpdf <path>", c.addPdf},
		"delpdf":      {"delpdf <id>", c.deletePdf},
		"play":        {"play", c.transport(domain.VideoPlay)},
		"pause":       {"pause", c.transport(domain.VideoPause)},
		"restart":     {"restart", c.transport(domain.VideoRestart)},
		"fav":         {"fav [n]", c.fav},
		"favsong":     {"favsong <id>", c.favSong},
		"favs":        {"favs", c.favs},
		"unfav":       {"unfav <n>", c.unfav},
		"clearfavs":   {"clearfavs", c.clearFavs},
		"style":       {"style scripture|song bg|text|image|video <value>", c.style},
		"recent":      {"recent", c.recent},
		"export":      {"export <file>", c.exportSongs},
		"import":      {"import <file>", c.importSongs},
		"importbible": {"importbible <version> <file>", c.importBible},
	}
	tracker.OnScroll(func(index int) {
		c.printf("live: row %d\n", index+1)
	})
	return c
}

// Run reads commands from in until quit, EOF or ctx cancellation.
// Command errors are reported and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("versecast ready, type help for commands\n")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.printf("error: %v\n", err)
			}
		}
	}
}

// Execute runs a single command line
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	name, args, _ := strings.Cut(line, " ")
	cmd, ok := c.commands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", name)
	}
	c.logger.Debug("Console command", zap.String("command", name))
	return cmd.run(ctx, strings.TrimSpace(args))
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) help(context.Context, string) error {
	names := make([]string, 0, len(c.commands))
	for n := range c.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c.printf("  %s\n", c.commands[n].usage)
	}
	return nil
}

func (c *Console) open(ctx context.Context, _ string) error {
	return c.window.OpenProjector(ctx)
}

func (c *Console) close(ctx context.Context, _ string) error {
	return c.window.CloseProjector(ctx)
}

func (c *Console) status(context.Context, string) error {
	c.printf("version: %s\n", c.tracker.Version())
	if item, ok := c.tracker.Active(); ok {
		c.printf("live: %s\n", describe(item))
	} else {
		c.printf("live: nothing\n")
	}
	if loaded := c.tracker.Loaded(); loaded.IsSong() {
		c.printf("loaded: song %d\n", loaded.SongID)
	} else if loaded.Book != "" {
		c.printf("loaded: %s %d (%s)\n", loaded.Book, loaded.Chapter, loaded.Version)
	}
	return nil
}

func (c *Console) versions(ctx context.Context, _ string) error {
	vs, err := c.lib.Versions(ctx)
	if err != nil {
		return err
	}
	current := c.tracker.Version()
	for _, v := range vs {
		mark := " "
		if v == current {
			mark = "*"
		}
		c.printf("%s %s\n", mark, v)
	}
	return nil
}

func (c *Console) version(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: version <name>")
	}
	return c.tracker.SetVersion(ctx, args)
}

func (c *Console) books(ctx context.Context, _ string) error {
	books, err := c.tracker.Books(ctx)
	if err != nil {
		return err
	}
	for _, b := range books {
		c.printf("%s (%d)\n", b.Name, b.Chapters)
	}
	return nil
}

func (c *Console) chapter(ctx context.Context, args string) error {
	i := strings.LastIndexByte(args, ' ')
	if i < 0 {
		return errors.New("usage: chapter <book> <n>")
	}
	n, err := strconv.Atoi(args[i+1:])
	if err != nil {
		return fmt.Errorf("invalid chapter %q", args[i+1:])
	}
	books, err := c.tracker.Books(ctx)
	if err != nil {
		return err
	}
	book, ok := control.ResolveBook(books, strings.TrimSpace(args[:i]))
	if !ok {
		return fmt.Errorf("unknown book %q: %w", args[:i], domain.ErrBadQuery)
	}
	if err := c.tracker.LoadChapter(ctx, c.tracker.Version(), book.Name, n); err != nil {
		return err
	}
	return c.list(ctx, "")
}

// search ignores input that names no verse reference
func (c *Console) search(ctx context.Context, args string) error {
	item, err := c.tracker.Search(ctx, args)
	if errors.Is(err, domain.ErrBadQuery) {
		c.logger.Debug("Search input ignored", zap.String("input", args))
		return nil
	}
	if err != nil {
		return err
	}
	c.printf("%s\n", describe(item))
	return nil
}

func (c *Console) suggest(ctx context.Context, args string) error {
	if s := c.tracker.Suggest(ctx, args); s != "" {
		c.printf("%s\n", s)
	}
	return nil
}

func (c *Console) key(k control.Key) func(context.Context, string) error {
	return func(ctx context.Context, _ string) error {
		moved, err := c.tracker.HandleKey(ctx, k, control.FocusNone)
		if err != nil {
			return err
		}
		if !moved {
			c.printf("nothing to move to\n")
		}
		return nil
	}
}

func (c *Console) list(context.Context, string) error {
	active, hasActive := c.tracker.Active()
	for i, item := range c.tracker.List() {
		mark := " "
		if hasActive && domain.Equal(item, active) {
			mark = ">"
		}
		c.printf("%s %3d  %s\n", mark, i+1, excerpt(item.Text()))
	}
	return nil
}

func (c *Console) show(ctx context.Context, args string) error {
	n, err := strconv.Atoi(args)
	list := c.tracker.List()
	if err != nil || n < 1 || n > len(list) {
		return fmt.Errorf("row must be 1-%d", len(list))
	}
	return c.tracker.Project(ctx, list[n-1])
}

func (c *Console) songs(ctx context.Context, _ string) error {
	songs, err := c.lib.Songs(ctx)
	if err != nil {
		return err
	}
	for _, s := range songs {
		c.printf("%4d  %s [%s]\n", s.ID, s.Title, s.Category)
	}
	return nil
}

func (c *Console) findSong(ctx context.Context, args string) (domain.Song, error) {
	id, err := parseID(args)
	if err != nil {
		return domain.Song{}, err
	}
	songs, err := c.lib.Songs(ctx)
	if err != nil {
		return domain.Song{}, err
	}
	for _, s := range songs {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Song{}, fmt.Errorf("song %d: %w", id, domain.ErrNotFound)
}

func (c *Console) song(ctx context.Context, args string) error {
	s, err := c.findSong(ctx, args)
	if err != nil {
		return err
	}
	if err := c.tracker.LoadSong(ctx, s); err != nil {
		return err
	}
	return c.list(ctx, "")
}

// splitLyrics reads "<title> | <lyrics>" with \n escapes in the lyrics
func splitLyrics(args string) (string, string, error) {
	title, lyrics, ok := strings.Cut(args, "|")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return "", "", errors.New(`expected "<title> | <lyrics>"`)
	}
	return title, strings.ReplaceAll(strings.TrimSpace(lyrics), `\n`, "\n"), nil
}

func (c *Console) addSong(ctx context.Context, args string) error {
	title, lyrics, err := splitLyrics(args)
	if err != nil {
		return err
	}
	id, err := c.lib.AddSong(ctx, title, lyrics)
	if err != nil {
		return err
	}
	c.printf("song %d added\n", id)
	return nil
}

func (c *Console) editSong(ctx context.Context, args string) error {
	idArg, rest, _ := strings.Cut(args, " ")
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	title, lyrics, err := splitLyrics(rest)
	if err != nil {
		return err
	}
	return c.lib.UpdateSong(ctx, id, title, lyrics)
}

func (c *Console) deleteSong(ctx context.Context, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return c.lib.DeleteSong(ctx, id)
}

func (c *Console) images(ctx context.Context, _ string) error {
	imgs, err := c.lib.Images(ctx)
	if err != nil {
		return err
	}
	for _, a := range imgs {
		c.printf("%4d  %s (%s)\n", a.ID, a.Name, a.Fit)
	}
	return nil
}

func (c *Console) findImage(ctx context.Context, args string) (domain.ImageAsset, error) {
	id, err := parseID(args)
	if err != nil {
		return domain.ImageAsset{}, err
	}
	imgs, err := c.lib.Images(ctx)
	if err != nil {
		return domain.ImageAsset{}, err
	}
	for _, a := range imgs {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.ImageAsset{}, fmt.Errorf("image %d: %w", id, domain.ErrNotFound)
}

func (c *Console) image(ctx context.Context, args string) error {
	a, err := c.findImage(ctx, args)
	if err != nil {
		return err
	}
	return c.tracker.Project(ctx, domain.NewImage(a.Path, a.Fit))
}

func (c *Console) addImage(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: addimage <path>")
	}
	id, err := c.lib.AddImage(ctx, filepath.Base(args), args)
	if err != nil {
		return err
	}
	c.printf("image %d added\n", id)
	return nil
}

func (c *Console) deleteImage(ctx context.Context, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return c.lib.DeleteImage(ctx, id)
}

func (c *Console) fit(ctx context.Context, args string) error {
	idArg, mode, _ := strings.Cut(args, " ")
	a, err := c.findImage(ctx, idArg)
	if err != nil {
		return err
	}
	fit := domain.FitMode(strings.TrimSpace(mode))
	if domain.ParseFitMode(string(fit)) != fit {
		return fmt.Errorf("fit must be contain, cover or fill, not %q", mode)
	}
	return c.tracker.SetImageFit(ctx, a, fit)
}

func (c *Console) videos(ctx context.Context, _ string) error {
	vids, err := c.lib.Videos(ctx)
	if err != nil {
		return err
	}
	for _, v := range vids {
		loop := ""
		if v.Loop {
			loop = " (loop)"
		}
		c.printf("%4d  %s%s\n", v.ID, v.Name, loop)
	}
	return nil
}

func (c *Console) findVideo(ctx context.Context, args string) (domain.VideoAsset, error) {
	id, err := parseID(args)
	if err != nil {
		return domain.VideoAsset{}, err
	}
	vids, err := c.lib.Videos(ctx)
	if err != nil {
		return domain.VideoAsset{}, err
	}
	for _, v := range vids {
		if v.ID == id {
			return v, nil
		}
	}
	return domain.VideoAsset{}, fmt.Errorf("video %d: %w", id, domain.ErrNotFound)
}

func (c *Console) video(ctx context.Context, args string) error {
	v, err := c.findVideo(ctx, args)
	if err != nil {
		return err
	}
	return c.tracker.Project(ctx, domain.NewVideo(v.Path, v.Loop))
}

func (c *Console) addVideo(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: addvideo <path>")
	}
	id, err := c.lib.AddVideo(ctx, filepath.Base(args), args)
	if err != nil {
		return err
	}
	c.printf("video %d added\n", id)
	return nil
}

func (c *Console) deleteVideo(ctx context.Context, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return c.lib.DeleteVideo(ctx, id)
}

func (c *Console) loop(ctx context.Context, args string) error {
	idArg, flag, _ := strings.Cut(args, " ")
	v, err := c.findVideo(ctx, idArg)
	if err != nil {
		return err
	}
	var loop bool
	switch strings.TrimSpace(flag) {
	case "on":
		loop = true
	case "off":
	default:
		return errors.New("usage: loop <id> on|off")
	}
	return c.tracker.SetVideoLoop(ctx, v, loop)
}

func (c *Console) pdfs(ctx context.Context, _ string) error {
	docs, err := c.lib.Pdfs(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		c.printf("%4d  %s\n", d.ID, d.Name)
	}
	return nil
}

func (c *Console) pdf(ctx context.Context, args string) error {
	idArg, pageArg, _ := strings.Cut(args, " ")
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	page := 1
	if pageArg = strings.TrimSpace(pageArg); pageArg != "" {
		if page, err = strconv.Atoi(pageArg); err != nil || page < 1 {
			return fmt.Errorf("invalid page %q", pageArg)
		}
	}
	docs, err := c.lib.Pdfs(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.ID == id {
			return c.tracker.Project(ctx, domain.NewPdfPage(d.Path, page))
		}
	}
	return fmt.Errorf("pdf %d: %w", id, domain.ErrNotFound)
}

func (c *Console) addPdf(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: addpdf <path>")
	}
	id, err := c.lib.AddPdf(ctx, filepath.Base(args), args)
	if err != nil {
		return err
	}
	c.printf("pdf %d added\n", id)
	return nil
}

func (c *Console) deletePdf(ctx context.Context, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return c.lib.DeletePdf(ctx, id)
}

func (c *Console) transport(action domain.VideoAction) func(context.Context, string) error {
	return func(ctx context.Context, _ string) error {
		return c.tracker.VideoControl(ctx, action)
	}
}

// fav toggles the live item, or with an argument projects that favorite
func (c *Console) fav(ctx context.Context, args string) error {
	if args != "" {
		n, err := strconv.Atoi(args)
		favs := c.tracker.Favorites()
		if err != nil || n < 1 || n > len(favs) {
			return fmt.Errorf("favorite must be 1-%d", len(favs))
		}
		return c.tracker.ProjectFavorite(ctx, favs[n-1])
	}
	item, ok := c.tracker.Active()
	if !ok {
		return errors.New("nothing is live")
	}
	if c.tracker.ToggleFavorite(item) {
		c.printf("added to favorites\n")
	} else {
		c.printf("removed from favorites\n")
	}
	return nil
}

func (c *Console) favSong(ctx context.Context, args string) error {
	s, err := c.findSong(ctx, args)
	if err != nil {
		return err
	}
	if c.tracker.ToggleSongFavorite(s) {
		c.printf("added to favorites\n")
	} else {
		c.printf("removed from favorites\n")
	}
	return nil
}

func (c *Console) favs(context.Context, string) error {
	for i, f := range c.tracker.Favorites() {
		title := describe(f.Item)
		if f.Song != nil {
			title = f.Song.Title
		}
		c.printf("%3d  [%s] %s\n", i+1, f.Label, title)
	}
	return nil
}

func (c *Console) unfav(_ context.Context, args string) error {
	n, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("invalid favorite %q", args)
	}
	return c.tracker.RemoveFavoriteAt(n - 1)
}

func (c *Console) clearFavs(context.Context, string) error {
	c.tracker.ClearFavorites()
	return nil
}

func (c *Console) style(ctx context.Context, args string) error {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) != 3 {
		return errors.New("usage: style scripture|song bg|text|image|video <value>")
	}
	target, err := style.ParseTarget(fields[0])
	if err != nil {
		return err
	}
	value := strings.TrimSpace(fields[2])
	switch fields[1] {
	case "bg":
		c.styles.SetBackgroundColor(ctx, target, value)
	case "text":
		c.styles.SetTextColor(ctx, target, value)
	case "image":
		c.styles.SetBackgroundImage(ctx, target, value)
	case "video":
		if _, err := c.styles.SetBackgroundVideo(ctx, target, value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown style field %q", fields[1])
	}
	set, _ := c.styles.Active(domain.Category(target))
	c.printf("%s: bg=%s text=%s image=%s video=%s\n", target, set.BackgroundColor, set.TextColor, set.BackgroundImage, set.BackgroundVideo)
	return nil
}

func (c *Console) recent(context.Context, string) error {
	for _, p := range c.styles.Recent() {
		c.printf("%s\n", p)
	}
	return nil
}

func (c *Console) exportSongs(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: export <file>")
	}
	n, err := c.lib.ExportSongsFile(ctx, args)
	if err != nil {
		return err
	}
	c.printf("%d songs exported\n", n)
	return nil
}

func (c *Console) importSongs(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: import <file>")
	}
	n, err := c.lib.ImportSongsFile(ctx, args)
	if err != nil {
		return err
	}
	c.printf("%d songs imported\n", n)
	return nil
}

func (c *Console) importBible(ctx context.Context, args string) error {
	version, path, ok := strings.Cut(args, " ")
	if !ok || strings.TrimSpace(path) == "" {
		return errors.New("usage: importbible <version> <file>")
	}
	if err := c.lib.ImportVersionFile(ctx, version, strings.TrimSpace(path)); err != nil {
		return err
	}
	c.printf("version %s imported\n", version)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func describe(item domain.ContentItem) string {
	switch {
	case item.Category.IsText():
		return fmt.Sprintf("%s: %s", item.Reference(), excerpt(item.Text()))
	case item.Category == domain.CategoryPdf && item.Pdf != nil:
		return fmt.Sprintf("pdf %s page %d", item.Path(), item.Pdf.Page)
	}
	return fmt.Sprintf("%s %s", item.Category, item.Path())
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}
