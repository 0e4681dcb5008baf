package download

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/key"
	"github.com/romsan-app/romsan/ledger"
	"github.com/romsan-app/romsan/runner"
	"github.com/romsan-app/romsan/source"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
	viper.Set(key.DownloadPath, "/downloads")
}

// eventually polls a condition until it holds or the deadline passes.
func eventually(check func() bool) bool {
	deadline := time.After(5 * time.Second)
	for {
		if check() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type fixedStorage struct {
	writableErr error
	free        uint64
}

func (s fixedStorage) Writable(string) error {
	return s.writableErr
}

func (s fixedStorage) FreeBytes(string) (uint64, error) {
	return s.free, nil
}

func TestTargetFilename(t *testing.T) {
	Convey("targetFilename", t, func() {
		Convey("Should recover the extension from the URL", func() {
			So(targetFilename("Super Game", "", "http://x/dl/super.zip"), ShouldEqual, "Super_Game.zip")
		})

		Convey("Should prefer the declared extension", func() {
			So(targetFilename("super.7z", "", "http://x/dl/super.zip"), ShouldEqual, "super.7z")
		})

		Convey("Should fall back to the title when the link is unnamed", func() {
			So(targetFilename("", "Super Game", "http://x/dl/super.zip"), ShouldEqual, "Super_Game.zip")
		})
	})
}

func TestStoragePreconditions(t *testing.T) {
	ctx := context.Background()

	Convey("Storage preconditions", t, func() {
		m := runner.NewMemory()

		Convey("Insufficient space aborts before any side effect", func() {
			o := NewOrchestrator(m, WithStorage(fixedStorage{free: 10 << 20})) // 10 MiB < 50 MiB floor

			link := &source.DownloadLink{URL: "http://x/dl/starved.zip", Name: "starved.zip"}
			_, err := o.StartDownload(ctx, Request{Slug: "starved", Title: "Starved", Link: link})

			var insufficient *InsufficientStorageError
			So(errors.As(err, &insufficient), ShouldBeTrue)
			So(insufficient.FreeBytes, ShouldEqual, 10<<20)

			Convey("No job was submitted", func() {
				So(m.ByTag(tagURL(link.URL)), ShouldBeEmpty)
			})

			Convey("No ledger entry was written", func() {
				So(ledger.QueryStatus("starved.zip", link.URL).Downloaded, ShouldBeFalse)
				_, found := ledger.FindFileByURL(link.URL)
				So(found, ShouldBeFalse)
			})
		})

		Convey("An unwritable directory raises a permission error", func() {
			o := NewOrchestrator(m, WithStorage(fixedStorage{writableErr: fmt.Errorf("read-only volume")}))

			link := &source.DownloadLink{URL: "http://x/dl/sealed.zip"}
			_, err := o.StartDownload(ctx, Request{Slug: "sealed", Title: "Sealed", Link: link})

			var permission *StoragePermissionError
			So(errors.As(err, &permission), ShouldBeTrue)
			So(m.ByTag(tagURL(link.URL)), ShouldBeEmpty)
		})

		Convey("A request without a link is rejected", func() {
			o := NewOrchestrator(m)
			_, err := o.StartDownload(ctx, Request{Slug: "empty"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDownloadLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Download lifecycle", t, func() {
		payload := []byte("rom image bytes")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer server.Close()

		m := runner.NewMemory()
		o := NewOrchestrator(m)

		link := &source.DownloadLink{URL: server.URL + "/lifecycle.zip", Name: "lifecycle.zip"}

		runID, err := o.StartDownload(ctx, Request{Slug: "lifecycle", Title: "Lifecycle", Link: link})
		So(err, ShouldBeNil)

		Convey("The job completes and writes the ledger line", func() {
			completed := eventually(func() bool {
				return ledger.QueryStatus("lifecycle.zip", link.URL).Downloaded
			})
			So(completed, ShouldBeTrue)

			Convey("The file landed in the download directory", func() {
				content, err := filesystem.API().ReadFile("/downloads/lifecycle.zip")
				So(err, ShouldBeNil)
				So(content, ShouldResemble, payload)
			})

			Convey("The ledger carries the slug header", func() {
				So(ledger.Slug("lifecycle.zip"), ShouldEqual, "lifecycle")
			})

			Convey("CheckLinkStatus reads completed, not yet extracted", func() {
				download, extraction := o.CheckLinkStatus("Lifecycle", link)
				So(download, ShouldEqual, DownloadCompleted)
				So(extraction, ShouldEqual, ExtractionIdle)
			})

			Convey("A second start for the same URL joins the finished state", func() {
				_, err := o.StartDownload(ctx, Request{Slug: "lifecycle", Title: "Lifecycle", Link: link})
				So(err, ShouldBeNil)
			})
		})

		_ = runID
	})
}

// instantRunner completes work inside Submit and closes observation streams
// without replaying the outcome, the least helpful behavior the boundary
// allows for a job that finishes before anyone can watch it.
type instantRunner struct {
	mu   sync.Mutex
	runs []runner.Info
}

func (r *instantRunner) Submit(work runner.Work) (string, error) {
	_, err := work.Run(context.Background(), func(map[string]any) {})

	state := runner.StateSucceeded
	if err != nil {
		state = runner.StateFailed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info := runner.Info{
		RunID:  fmt.Sprintf("run-%d", len(r.runs)+1),
		WorkID: work.ID,
		Tags:   work.Tags,
		State:  state,
	}
	r.runs = append(r.runs, info)
	return info.RunID, nil
}

func (r *instantRunner) Observe(string) <-chan runner.Update {
	ch := make(chan runner.Update)
	close(ch)
	return ch
}

func (r *instantRunner) Cancel(string) {}
func (r *instantRunner) CancelAll()    {}

func (r *instantRunner) ByTag(tag string) []runner.Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	var infos []runner.Info
	for _, info := range r.runs {
		for _, t := range info.Tags {
			if t == tag {
				infos = append(infos, info)
				break
			}
		}
	}
	return infos
}

func TestCompletionRecordedForFastRuns(t *testing.T) {
	ctx := context.Background()

	Convey("A download finishing before its observer attaches", t, func() {
		payload := []byte("tiny rom")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer server.Close()

		o := NewOrchestrator(&instantRunner{})

		link := &source.DownloadLink{URL: server.URL + "/instant.zip", Name: "instant.zip"}
		_, err := o.StartDownload(ctx, Request{Slug: "instant", Title: "Instant", Link: link})
		So(err, ShouldBeNil)

		Convey("Still gets its completion line", func() {
			recorded := eventually(func() bool {
				return ledger.QueryStatus("instant.zip", link.URL).Downloaded
			})
			So(recorded, ShouldBeTrue)

			content, err := filesystem.API().ReadFile("/downloads/instant.zip")
			So(err, ShouldBeNil)
			So(content, ShouldResemble, payload)

			Convey("And reads as completed", func() {
				download, extraction := o.CheckLinkStatus("Instant", link)
				So(download, ShouldEqual, DownloadCompleted)
				So(extraction, ShouldEqual, ExtractionIdle)
			})
		})
	})
}

func TestExtractionOutcomeRecordedForFastRuns(t *testing.T) {
	ctx := context.Background()

	Convey("An extraction finishing before its observer attaches", t, func() {
		o := NewOrchestrator(&instantRunner{})
		fs := filesystem.API()

		So(fs.MkdirAll("/downloads", 0755), ShouldBeNil)
		So(fs.WriteFile("/downloads/swift.rom", []byte("raw image"), 0644), ShouldBeNil)
		So(ledger.RecordDownloadCompleted("swift.rom", "swift", "http://x/swift.rom"), ShouldBeNil)

		_, err := o.StartExtraction(ctx, ExtractionRequest{
			ArchivePath: "/downloads/swift.rom",
			DestDir:     "/downloads/swift",
			Title:       "Swift",
			URL:         "http://x/swift.rom",
		})
		So(err, ShouldBeNil)

		Convey("Still records the outcome", func() {
			recorded := eventually(func() bool {
				return ledger.QueryStatus("swift.rom", "http://x/swift.rom").ExtractionPath != ""
			})
			So(recorded, ShouldBeTrue)
		})
	})
}

func TestWaitingPhase(t *testing.T) {
	ctx := context.Background()

	Convey("A link with a source-declared delay", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("delayed payload"))
		}))
		defer server.Close()

		m := runner.NewMemory()
		o := NewOrchestrator(m)

		link := &source.DownloadLink{URL: server.URL + "/delayed.zip", Name: "delayed.zip", DelaySeconds: 2}
		_, err := o.StartDownload(ctx, Request{Slug: "delayed", Title: "Delayed", Link: link})
		So(err, ShouldBeNil)

		Convey("Reads as waiting while the delay runs out", func() {
			waiting := eventually(func() bool {
				download, _ := o.CheckLinkStatus("Delayed", link)
				return download == DownloadWaiting
			})
			So(waiting, ShouldBeTrue)

			Convey("And completes once it elapses", func() {
				completed := eventually(func() bool {
					return ledger.QueryStatus("delayed.zip", link.URL).Downloaded
				})
				So(completed, ShouldBeTrue)
			})
		})
	})
}

func TestDownloadFailureWritesNoLedgerLine(t *testing.T) {
	ctx := context.Background()

	Convey("A failing download", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		m := runner.NewMemory()
		o := NewOrchestrator(m)

		link := &source.DownloadLink{URL: server.URL + "/gone.zip", Name: "gone.zip"}

		runID, err := o.StartDownload(ctx, Request{Slug: "gone", Title: "Gone", Link: link})
		So(err, ShouldBeNil)

		terminal := eventually(func() bool {
			infos := m.ByTag(tagJob("download:" + link.URL))
			for _, info := range infos {
				if info.RunID == runID && info.State.Terminal() {
					return true
				}
			}
			return false
		})
		So(terminal, ShouldBeTrue)

		Convey("Leaves no completion record", func() {
			So(ledger.QueryStatus("gone.zip", link.URL).Downloaded, ShouldBeFalse)
		})

		Convey("And reads as idle again", func() {
			download, extraction := o.CheckLinkStatus("Gone", link)
			So(download, ShouldEqual, DownloadIdle)
			So(extraction, ShouldEqual, ExtractionIdle)
		})
	})
}

func TestExtraction(t *testing.T) {
	ctx := context.Background()

	Convey("Extraction", t, func() {
		m := runner.NewMemory()
		o := NewOrchestrator(m)
		fs := filesystem.API()

		Convey("Extracts a recognized archive and records the outcome", func() {
			var buf bytes.Buffer
			tw := tar.NewWriter(&buf)
			content := []byte("cartridge data")
			So(tw.WriteHeader(&tar.Header{Name: "game.rom", Mode: 0644, Size: int64(len(content))}), ShouldBeNil)
			_, err := tw.Write(content)
			So(err, ShouldBeNil)
			So(tw.Close(), ShouldBeNil)

			So(fs.MkdirAll("/downloads", 0755), ShouldBeNil)
			So(fs.WriteFile("/downloads/bundle.tar", buf.Bytes(), 0644), ShouldBeNil)
			So(ledger.RecordDownloadCompleted("bundle.tar", "bundle", "http://x/bundle.tar"), ShouldBeNil)

			_, err = o.StartExtraction(ctx, ExtractionRequest{
				ArchivePath: "/downloads/bundle.tar",
				DestDir:     "/downloads/bundle",
				Title:       "Bundle",
				Slug:        "bundle",
				URL:         "http://x/bundle.tar",
			})
			So(err, ShouldBeNil)

			recorded := eventually(func() bool {
				return ledger.QueryStatus("bundle.tar", "http://x/bundle.tar").ExtractionPath != ""
			})
			So(recorded, ShouldBeTrue)

			extracted, err := fs.ReadFile("/downloads/bundle/game.rom")
			So(err, ShouldBeNil)
			So(extracted, ShouldResemble, content)
		})

		Convey("Copies a non-archive file instead of failing", func() {
			So(fs.MkdirAll("/downloads", 0755), ShouldBeNil)
			So(fs.WriteFile("/downloads/plain.rom", []byte("no archive header here"), 0644), ShouldBeNil)
			So(ledger.RecordDownloadCompleted("plain.rom", "plain", "http://x/plain.rom"), ShouldBeNil)

			_, err := o.StartExtraction(ctx, ExtractionRequest{
				ArchivePath: "/downloads/plain.rom",
				DestDir:     "/downloads/plain",
				Title:       "Plain",
				URL:         "http://x/plain.rom",
			})
			So(err, ShouldBeNil)

			recorded := eventually(func() bool {
				return ledger.QueryStatus("plain.rom", "http://x/plain.rom").ExtractionPath != ""
			})
			So(recorded, ShouldBeTrue)

			copied, err := fs.ReadFile("/downloads/plain/plain.rom")
			So(err, ShouldBeNil)
			So(copied, ShouldResemble, []byte("no archive header here"))
		})
	})
}

func TestCheckRomStatus(t *testing.T) {
	Convey("CheckRomStatus", t, func() {
		m := runner.NewMemory()
		o := NewOrchestrator(m)

		Convey("Is idle with no jobs and no ledger state", func() {
			links := []*source.DownloadLink{{URL: "http://x/quiet.zip", Name: "quiet.zip"}}
			download, extraction := o.CheckRomStatus("quiet", "Quiet", links)
			So(download, ShouldEqual, DownloadIdle)
			So(extraction, ShouldEqual, ExtractionIdle)
		})

		Convey("A live slug-tagged job short-circuits link evaluation", func() {
			release := make(chan struct{})
			_, err := m.Submit(runner.Work{
				ID:   "download:http://x/busy.zip",
				Tags: []string{tagSlug("busy")},
				Run: func(ctx context.Context, report runner.Report) (map[string]any, error) {
					<-release
					return nil, nil
				},
			})
			So(err, ShouldBeNil)

			running := eventually(func() bool {
				infos := m.ByTag(tagSlug("busy"))
				return len(infos) == 1 && infos[0].State == runner.StateRunning
			})
			So(running, ShouldBeTrue)

			download, _ := o.CheckRomStatus("busy", "Busy", nil)
			So(download, ShouldEqual, DownloadInProgress)

			close(release)
		})

		Convey("Falls back to the first non-idle link", func() {
			So(ledger.RecordDownloadCompleted("second.zip", "pair", "http://x/second.zip"), ShouldBeNil)

			links := []*source.DownloadLink{
				{URL: "http://x/first.zip", Name: "first.zip"},
				{URL: "http://x/second.zip", Name: "second.zip"},
			}

			download, extraction := o.CheckRomStatus("pair", "Pair", links)
			So(download, ShouldEqual, DownloadCompleted)
			So(extraction, ShouldEqual, ExtractionIdle)
		})
	})
}
