package docs

import (
	"context"
	"fmt"
	"sort"
)

// ListAll returns every document in c, or none for a nil collection.
func ListAll(ctx context.Context, c *Collection) ([]Document, error) {
	if c == nil {
		return nil, nil
	}
	return c.Find(ctx, nil)
}

// InsertSchool inserts a school document built from fields and returns its id.
func InsertSchool(ctx context.Context, c *Collection, fields Document) (string, error) {
	if c == nil {
		return "", fmt.Errorf("no collection")
	}
	return c.InsertOne(ctx, fields)
}

// UpdateTopics sets the topics of every school called name.
func UpdateTopics(ctx context.Context, c *Collection, name string, topics []string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return c.UpdateMany(ctx, Filter{"name": name}, Document{"topics": topics})
}

// SchoolsByTopic returns the schools whose topics include topic.
func SchoolsByTopic(ctx context.Context, c *Collection, topic string) ([]Document, error) {
	return c.Find(ctx, Filter{"topics": topic})
}

// AverageScoreField is added to each document returned by TopStudents.
const AverageScoreField = "averageScore"

// TopStudents returns the students that have scores, each with its mean
// score under AverageScoreField, best first. A score is either a number or an
// object with a numeric "score" field.
func TopStudents(ctx context.Context, c *Collection) ([]Document, error) {
	all, err := c.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	var students []Document
	for _, doc := range all {
		avg, ok := averageScore(doc["scores"])
		if !ok {
			continue
		}
		doc[AverageScoreField] = avg
		students = append(students, doc)
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i][AverageScoreField].(float64) > students[j][AverageScoreField].(float64)
	})
	return students, nil
}

func averageScore(v any) (float64, bool) {
	scores, ok := v.([]any)
	if !ok || len(scores) == 0 {
		return 0, false
	}
	var sum float64
	n := 0
	for _, s := range scores {
		switch s := s.(type) {
		case float64:
			sum += s
			n++
		case map[string]any:
			if f, ok := s["score"].(float64); ok {
				sum += f
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
