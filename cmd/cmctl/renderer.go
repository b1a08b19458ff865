package main

import (
	"fmt"
	"io"
	"time"

	"github.com/clickmoment/clickmoment/internal/project"
	"github.com/clickmoment/clickmoment/internal/view"
)

// consoleRenderer draws panels as terminal output.
type consoleRenderer struct {
	out io.Writer
}

func (r *consoleRenderer) ShowPanel(p view.Panel) {}

func (r *consoleRenderer) RenderProjects(projects []project.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(r.out, "No projects yet. Create one with `cmctl projects create`.")
		return
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		video := "-"
		if p.ContentSources.VideoPath != "" {
			video = "yes"
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			video,
			p.UpdatedAt.Format(time.RFC3339),
		})
	}
	fmt.Fprintln(r.out, renderTable(
		[]string{"ID", "NAME", "VIDEO", "UPDATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func (r *consoleRenderer) RenderProjectDetail(p *project.Project, playbackURL string) {
	fmt.Fprintf(r.out, "%s\n", p.Name)
	fmt.Fprintf(r.out, "  id:       %s\n", p.ID)
	fmt.Fprintf(r.out, "  updated:  %s\n", p.UpdatedAt.Format(time.RFC3339))
	if p.CreativeDirection.Mood != "" {
		fmt.Fprintf(r.out, "  mood:     %s\n", p.CreativeDirection.Mood)
	}
	if p.CreativeDirection.TitleHint != "" {
		fmt.Fprintf(r.out, "  title:    %s\n", p.CreativeDirection.TitleHint)
	}
	if p.CreatorContext.NicheHint != "" {
		fmt.Fprintf(r.out, "  niche:    %s\n", p.CreatorContext.NicheHint)
	}
	if p.ContentSources.VideoPath != "" {
		fmt.Fprintf(r.out, "  video:    %s\n", p.ContentSources.VideoPath)
	}
	if playbackURL != "" {
		fmt.Fprintf(r.out, "  playback: %s\n", playbackURL)
	}
}
