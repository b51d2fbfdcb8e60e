package summarize

import "context"

// Service turns a cleaned transcript into structured meeting minutes.
type Service interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// systemPrompt asks for minutes organized into the five standard sections.
const systemPrompt = `You are an expert assistant that creates concise and well-structured meeting minutes from transcripts.
Focus on extracting and organizing key discussion points, decisions, action items, and assignments.
Format the minutes with clear sections for:
1. Meeting Overview
2. Key Points Discussed
3. Decisions Made
4. Action Items (with assigned persons if mentioned)
5. Next Steps

Use professional language and be concise yet thorough.`
