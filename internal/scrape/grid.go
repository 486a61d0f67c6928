package scrape

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/chromedp/chromedp"

	appLog "confplan/internal/log"
)

// gridJS walks the rendered schedule grid and returns every session slot and
// non-session row as JSON. Hrefs are returned raw; identifier extraction
// happens on the Go side where it can be unit tested.
const gridJS = `
(() => {
  const days = document.querySelectorAll('.schedule-day');
  const sessions = [];
  const events = [];

  days.forEach((dayEl, dayIdx) => {
    const h2 = dayEl.previousElementSibling;
    const dayText = h2 ? h2.textContent.trim() : 'Day ' + dayIdx;

    const headerRow = dayEl.querySelector('.row:first-child');
    const roomEls = headerRow ? headerRow.querySelectorAll('.room') : [];
    const rooms = Array.from(roomEls).map(r => r.textContent.trim());

    dayEl.querySelectorAll('.row').forEach(row => {
      const timeEl = row.querySelector('.time');
      if (!timeEl) return;

      const times = timeEl.textContent.trim().match(/\d+:\d+/g) || [];
      const startTime = times[0] || '';
      const endTime = times[1] || '';

      const lunchEl = row.querySelector('.lunch');
      if (lunchEl) {
        events.push({
          day: dayText, start_time: startTime,
          end_time: endTime, name: lunchEl.textContent.trim(),
        });
        return;
      }

      row.querySelectorAll('.slot').forEach((slot, slotIdx) => {
        const sessionEl = slot.querySelector('.session a');
        if (!sessionEl) return;

        const speakers = Array.from(slot.querySelectorAll('.speaker a')).map(a => ({
          href: a.getAttribute('href') || '',
          name: a.textContent.trim(),
        }));

        const typeEl = slot.querySelector('.session-type');
        const sessionType = typeEl ? typeEl.textContent.trim() : '';

        const roomSpan = slot.querySelector('.room');
        const room = roomSpan ? roomSpan.textContent.trim() : (rooms[slotIdx] || '');

        const tracks = Array.from(slot.querySelectorAll('.tag'))
          .map(t => t.getAttribute('title') || '')
          .filter(Boolean);

        sessions.push({
          href: sessionEl.getAttribute('href') || '',
          title: sessionEl.textContent.trim(),
          day: dayText, start_time: startTime, end_time: endTime,
          room, speakers,
          keynote: slot.classList.contains('keynote') || sessionType.toLowerCase() === 'keynote',
          tracks,
        });
      });
    });
  });

  return { sessions, events };
})()
`

type gridEvalSpeaker struct {
	Href string `json:"href"`
	Name string `json:"name"`
}

type gridEvalSession struct {
	Href      string            `json:"href"`
	Title     string            `json:"title"`
	Day       string            `json:"day"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Room      string            `json:"room"`
	Speakers  []gridEvalSpeaker `json:"speakers"`
	Keynote   bool              `json:"keynote"`
	Tracks    []string          `json:"tracks"`
}

type gridEvalEvent struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Name      string `json:"name"`
}

type gridEval struct {
	Sessions []gridEvalSession `json:"sessions"`
	Events   []gridEvalEvent   `json:"events"`
}

var (
	sessionHrefRe = regexp.MustCompile(`/session/([^/?#]+)`)
	speakerHrefRe = regexp.MustCompile(`/speaker/([^/?#]+)`)
)

// FetchGrid runs phase 1: it loads the schedule page and extracts one raw
// record per session occurrence. Records for the same session identifier
// (multi-slot trainings span several rows) are merged into one.
func (s *Scraper) FetchGrid(ctx context.Context) (GridBatch, error) {
	if err := ctx.Err(); err != nil {
		return GridBatch{}, err
	}

	url := s.cfg.ScheduleURL()
	appLog.Info("grid phase start", "url", url)

	var raw gridEval
	err := s.runTab(gridTimeout,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`.schedule-day`, chromedp.ByQuery),
		chromedp.Evaluate(gridJS, &raw),
	)
	if err != nil {
		return GridBatch{}, fmt.Errorf("scrape: grid fetch failed: %w", err)
	}

	batch := GridBatch{
		FetchedAt: time.Now().UTC(),
		Sessions:  mergeGridSessions(raw.Sessions),
	}
	for _, ev := range raw.Events {
		batch.Events = append(batch.Events, EventRecord(ev))
	}

	appLog.Info("grid phase done",
		"slots", len(raw.Sessions),
		"sessions", len(batch.Sessions),
		"events", len(batch.Events),
	)
	return batch, nil
}

// mergeGridSessions collapses duplicate occurrences of a session into one
// record: earliest start, latest end, union of tracks and speakers. Output
// is sorted by day, start time, then session ID so the batch is
// deterministic regardless of grid iteration order.
func mergeGridSessions(raw []gridEvalSession) []GridRecord {
	bySlug := make(map[string]*GridRecord)
	order := make([]string, 0, len(raw))

	for _, rs := range raw {
		id := matchHref(sessionHrefRe, rs.Href)
		if id == "" {
			continue
		}

		rec, ok := bySlug[id]
		if !ok {
			rec = &GridRecord{
				SessionID: id,
				Title:     rs.Title,
				Day:       rs.Day,
				StartTime: rs.StartTime,
				EndTime:   rs.EndTime,
				Room:      rs.Room,
				Keynote:   rs.Keynote,
			}
			bySlug[id] = rec
			order = append(order, id)
		} else {
			if rs.StartTime != "" && (rec.StartTime == "" || timeKey(rs.StartTime) < timeKey(rec.StartTime)) {
				rec.StartTime = rs.StartTime
			}
			if timeKey(rs.EndTime) > timeKey(rec.EndTime) {
				rec.EndTime = rs.EndTime
			}
		}

		for _, t := range rs.Tracks {
			if !containsString(rec.Tracks, t) {
				rec.Tracks = append(rec.Tracks, t)
			}
		}
		for _, sp := range rs.Speakers {
			slug := matchHref(speakerHrefRe, sp.Href)
			if slug == "" && sp.Name == "" {
				continue
			}
			ref := SpeakerRef{Slug: slug, Name: sp.Name}
			if !containsRef(rec.Speakers, ref) {
				rec.Speakers = append(rec.Speakers, ref)
			}
		}
	}

	out := make([]GridRecord, 0, len(order))
	for _, id := range order {
		out = append(out, *bySlug[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].StartTime != out[j].StartTime {
			return timeKey(out[i].StartTime) < timeKey(out[j].StartTime)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// timeKey zero-pads "9:00" style times so lexicographic comparison matches
// chronological order ("09:00" < "10:00").
func timeKey(t string) string {
	if len(t) == 4 { // H:MM
		return "0" + t
	}
	return t
}

func matchHref(re *regexp.Regexp, href string) string {
	m := re.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsRef(s []SpeakerRef, v SpeakerRef) bool {
	for _, x := range s {
		if x.Slug == v.Slug && x.Name == v.Name {
			return true
		}
	}
	return false
}
