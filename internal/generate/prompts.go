package generate

import "fmt"

const mockupSystemPrompt = `You are a professional UI/UX designer. Create detailed UI/UX mockups as SVG. Gather and use the key aspects of the masterplan; the mockups must be intuitive and user friendly. Make sure every SVG replaces escaped newlines (\n) with actual line breaks.`

const architectureSystemPrompt = `You are a professional software architect specializing in creating clear, informative architecture diagrams. Create SVG diagrams that illustrate the system architecture based on the masterplan provided.

For each diagram:
1. First describe the architecture component in detail
2. Then provide an SVG diagram representation
3. Make sure SVG code is clean and renders properly (replace escaped newlines with actual breaks)
4. Include animations where appropriate to illustrate data flow
5. Use appropriate colors to differentiate components (frontend, backend, database, etc.)

Create multiple diagrams:
1. A high-level system architecture overview
2. A more detailed component diagram
3. A data flow diagram

Each SVG should be clear, professional, and help visualize the application structure.`

func mockupPrompt(masterplan string, sketchCount int) string {
	prompt := fmt.Sprintf(`I need you to create UI/UX mockups for an application based on this masterplan:

%s

Please create detailed SVG mockups for the main screens. For each mockup, first describe the screen's purpose, then provide the visual representation using SVG.`, masterplan)
	if sketchCount > 0 {
		prompt += fmt.Sprintf("\n\nThe user also provided %d interface sketch drawings; design the mockups to follow their layout and intent.", sketchCount)
	}
	return prompt
}

func architecturePrompt(masterplan string) string {
	return fmt.Sprintf(`Based on this masterplan, please create a high level architecture diagram for the application. It should be clear, simple and beautiful:

%s

Please generate an animated SVG diagram that shows:
1. High-level system architecture
2. Component relationships
3. Data flow between components
4. Any important technical details from the masterplan

Each diagram should be accompanied by explanatory text.`, masterplan)
}
