package scrape

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	appLog "confplan/internal/log"
)

// speakerJS extracts a speaker profile: name, country, bio, photo and the
// first personal Twitter/X link.
const speakerJS = `
(() => {
  const h1 = document.querySelector('h1');
  const name = h1 ? h1.textContent.trim() : '';

  const content = document.querySelector('.content') || document.querySelector('main');

  let country = '';
  if (content) {
    for (const p of content.querySelectorAll('p')) {
      const span = p.querySelector('span');
      if (!span) continue;
      const text = span.textContent.trim();
      if (text.length > 2 && text.length < 50 &&
          !text.includes('session') && !text.includes('training')) {
        country = text;
        break;
      }
    }
  }

  let bio = '';
  if (content) {
    for (const p of content.querySelectorAll('p')) {
      const text = p.textContent.trim();
      if (text.length > 50 &&
          !text.match(/session\s*-|training\s*-/i) &&
          !text.includes('Share on') &&
          !text.includes('Read More') &&
          !(country && text.includes(country))) {
        bio = text;
        break;
      }
    }
  }

  let photo = '';
  if (name) {
    const img = document.querySelector('img[alt="' + name.replace(/"/g, '\\"') + '"]');
    if (img) photo = img.src || '';
  }

  let twitter = '';
  for (const a of document.querySelectorAll('a[href]')) {
    const href = a.getAttribute('href') || '';
    if ((href.includes('twitter.com') || href.includes('x.com/')) &&
        !href.includes('intent/tweet')) {
      twitter = href;
      break;
    }
  }

  return { name, country, bio, photo_url: photo, twitter };
})()
`

type speakerEval struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photo_url"`
	Twitter  string `json:"twitter"`
}

// FetchSpeakers runs phase 3: one profile page per de-duplicated speaker
// slug discovered across phases 1-2. Same partial-failure policy as the
// detail phase.
func (s *Scraper) FetchSpeakers(ctx context.Context, slugs []string) (SpeakerBatch, error) {
	appLog.Info("speaker phase start", "speakers", len(slugs), "workers", s.cfg.Workers)

	var mu sync.Mutex
	batch := SpeakerBatch{FetchedAt: time.Now().UTC()}

	err := s.forEachItem(ctx, slugs, func(slug string) {
		attempts := 0
		rec, ferr := s.fetchSpeaker(ctx, slug, &attempts)

		mu.Lock()
		defer mu.Unlock()
		if ferr != nil {
			appLog.Warn("speaker profile failed", "speaker", slug, "attempts", attempts, "err", ferr)
			batch.Failures = append(batch.Failures, ItemFailure{ID: slug, Attempts: attempts, Err: ferr.Error()})
			return
		}
		batch.Records = append(batch.Records, rec)
	})

	sort.Slice(batch.Records, func(i, j int) bool { return batch.Records[i].Slug < batch.Records[j].Slug })
	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].ID < batch.Failures[j].ID })

	appLog.Info("speaker phase done", "fetched", len(batch.Records), "failed", len(batch.Failures))
	return batch, err
}

func (s *Scraper) fetchSpeaker(ctx context.Context, slug string, attempts *int) (SpeakerRecord, error) {
	var raw speakerEval
	err := s.withRetry(ctx, attempts, func() error {
		return s.runTab(itemTimeout,
			chromedp.Navigate(s.cfg.SpeakerURL(slug)),
			chromedp.WaitReady(`body`, chromedp.ByQuery),
			chromedp.Evaluate(speakerJS, &raw),
		)
	})
	if err != nil {
		return SpeakerRecord{}, err
	}

	return SpeakerRecord{
		Slug:     slug,
		Name:     raw.Name,
		Country:  raw.Country,
		Bio:      raw.Bio,
		PhotoURL: raw.PhotoURL,
		Twitter:  raw.Twitter,
	}, nil
}
