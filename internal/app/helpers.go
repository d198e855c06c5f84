package app

import (
	"newsreel/internal/app/model"
)

func topicTitles(topics []model.Topic) []string {
	titles := make([]string, len(topics))
	for i, t := range topics {
		titles[i] = t.Title
	}
	return titles
}
