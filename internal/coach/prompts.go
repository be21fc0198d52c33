package coach

import "fmt"

func planPrompt(profile string) string {
	return fmt.Sprintf(`Act as an expert ultra-trail coach.
Generate a weekly training plan based on this profile: %s.
The plan starts on currentWeekStart, which is a Monday, and has exactly seven sessions, one per day.
Respond with JSON of the form {"weekNumber": number, "focus": string, "sessions": [{"day": "Monday", "date": "YYYY-MM-DD", "type": one of "Rest", "Easy", "Tempo", "Intervals", "Long Run", "Hill Repeats", "Cross Train", "distanceTarget": kilometres, "description": string}]}.
Return ONLY valid JSON without markdown code blocks.`, profile)
}

func nutritionPrompt(focus string) string {
	return fmt.Sprintf(`Act as a sports nutritionist for ultra-trail runners.
Suggest a daily meal plan for a training block focused on: %s.
Respond with a JSON array of {"day": string, "meals": {"Breakfast"|"Lunch"|"Dinner"|"Snack": {"name": string, "description": string, "calories": number, "macros": {"p": grams, "c": grams, "f": grams}}}}.
Return ONLY valid JSON without markdown code blocks.`, focus)
}

func mealPrompt(foodLog string) string {
	return fmt.Sprintf(`Estimate the nutrition of this food log entry: %q.
Respond with JSON {"name": string, "calories": number, "protein": grams, "carbs": grams, "fats": grams, "type": one of "Breakfast", "Lunch", "Dinner", "Snack"}.
Return ONLY valid JSON without markdown code blocks.`, foodLog)
}

func advicePrompt(query, background string) string {
	return fmt.Sprintf(`You are a concise, encouraging ultra-trail running coach.
Athlete context: %s
Question: %s
Answer in at most three short paragraphs.`, background, query)
}
