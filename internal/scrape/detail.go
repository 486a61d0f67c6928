package scrape

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	appLog "confplan/internal/log"
)

// detailJS extracts the abstract, language/level line, and the speaker
// company/bio paragraphs from a session detail page. The selectors mirror
// the site's rendered markup and tolerate layout noise by filtering on text
// heuristics.
const detailJS = `
(() => {
  let abstract = '';
  let language = '';
  let level = '';

  for (const p of document.querySelectorAll('p')) {
    const text = p.textContent.trim();
    if (text.match(/(English|French)\s+(session|training)/i)) {
      const langMatch = text.match(/(English|French)/i);
      if (langMatch) language = langMatch[1];
      const levelMatch = text.match(/(Beginner|Intermediate|Advanced)/i);
      if (levelMatch) level = levelMatch[1];
      break;
    }
  }

  const selectors = [
    '.content > div > div > div > div',
    '.col-md-12 > div > div > div > div'
  ];
  for (const sel of selectors) {
    for (const div of document.querySelectorAll(sel)) {
      if (div.querySelector('h2') || div.querySelector('a[href*="share"]')) continue;
      const text = div.textContent.trim();
      if (text.length > 50 &&
          !text.includes('View all') &&
          !text.includes('Share on') &&
          !text.includes('Other training')) {
        abstract = text;
        break;
      }
    }
    if (abstract) break;
  }

  if (!abstract) {
    const content = document.querySelector('.content');
    if (content) {
      for (const div of content.querySelectorAll('div')) {
        if (div.children.length > 3) continue;
        const text = div.textContent.trim();
        if (text.length > 80 &&
            !text.includes('View all') &&
            !text.includes('Share on') &&
            !text.includes('Home /') &&
            !text.includes('Sponsored by') &&
            !text.includes('Other training') &&
            !div.querySelector('h2')) {
          abstract = text;
          break;
        }
      }
    }
  }

  let speakerCompany = '';
  let speakerBio = '';
  for (const h2 of document.querySelectorAll('h2')) {
    const parent = h2.parentElement;
    if (!parent) continue;
    if (!parent.querySelector('a[href*="/speaker/"]')) continue;
    for (const p of parent.querySelectorAll('p')) {
      const text = p.textContent.trim();
      if (text.includes('Read More') || text.length < 3) continue;
      if (!speakerCompany && text.length < 120) {
        speakerCompany = text;
      } else if (!speakerBio && text.length > 50) {
        speakerBio = text;
      }
    }
    break;
  }

  return { abstract, language, level, speaker_company: speakerCompany, speaker_bio: speakerBio };
})()
`

type detailEval struct {
	Abstract       string `json:"abstract"`
	Language       string `json:"language"`
	Level          string `json:"level"`
	SpeakerCompany string `json:"speaker_company"`
	SpeakerBio     string `json:"speaker_bio"`
}

// FetchDetails runs phase 2: one detail page per session identifier
// discovered in phase 1, across the worker pool. A failure on one session
// never aborts the rest; exhausted items land in the batch's Failures.
func (s *Scraper) FetchDetails(ctx context.Context, sessionIDs []string) (DetailBatch, error) {
	appLog.Info("detail phase start", "sessions", len(sessionIDs), "workers", s.cfg.Workers)

	var mu sync.Mutex
	batch := DetailBatch{FetchedAt: time.Now().UTC()}

	err := s.forEachItem(ctx, sessionIDs, func(id string) {
		attempts := 0
		rec, ferr := s.fetchDetail(ctx, id, &attempts)

		mu.Lock()
		defer mu.Unlock()
		if ferr != nil {
			appLog.Warn("session detail failed", "session", id, "attempts", attempts, "err", ferr)
			batch.Failures = append(batch.Failures, ItemFailure{ID: id, Attempts: attempts, Err: ferr.Error()})
			return
		}
		batch.Records = append(batch.Records, rec)
	})

	sort.Slice(batch.Records, func(i, j int) bool { return batch.Records[i].SessionID < batch.Records[j].SessionID })
	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].ID < batch.Failures[j].ID })

	appLog.Info("detail phase done", "fetched", len(batch.Records), "failed", len(batch.Failures))
	return batch, err
}

func (s *Scraper) fetchDetail(ctx context.Context, id string, attempts *int) (DetailRecord, error) {
	var raw detailEval
	err := s.withRetry(ctx, attempts, func() error {
		return s.runTab(itemTimeout,
			chromedp.Navigate(s.cfg.SessionURL(id)),
			chromedp.WaitReady(`body`, chromedp.ByQuery),
			chromedp.Evaluate(detailJS, &raw),
		)
	})
	if err != nil {
		return DetailRecord{}, err
	}

	return DetailRecord{
		SessionID:      id,
		Abstract:       raw.Abstract,
		Language:       raw.Language,
		Level:          raw.Level,
		SpeakerCompany: raw.SpeakerCompany,
		SpeakerBio:     raw.SpeakerBio,
	}, nil
}
