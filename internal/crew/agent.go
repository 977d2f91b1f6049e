package crew

import "fmt"

// Agent is a persona under which a task executes. The persona becomes the
// system instruction for the task's generation call.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
}

// systemPrompt renders the persona as a system instruction.
func (a Agent) systemPrompt() string {
	return fmt.Sprintf("You are a %s. Your goal: %s\n%s", a.Role, a.Goal, a.Backstory)
}

// ResearchAnalyst researches a topic against the knowledge base.
func ResearchAnalyst() Agent {
	return Agent{
		Role: "Research Analyst",
		Goal: "Extract and synthesize relevant information from the knowledge base",
		Backstory: "You are an expert research analyst with deep experience in " +
			"information retrieval and synthesis. You excel at finding relevant " +
			"information and presenting it clearly.",
	}
}

// DataAnalyst interprets research findings.
func DataAnalyst() Agent {
	return Agent{
		Role: "Data Analyst",
		Goal: "Analyze data and identify patterns, trends, and insights",
		Backstory: "You are a skilled data analyst who can interpret complex " +
			"information and extract meaningful insights. You use the knowledge " +
			"base to support your analysis.",
	}
}

// ReportWriter produces the final report.
func ReportWriter() Agent {
	return Agent{
		Role: "Report Writer",
		Goal: "Create clear, comprehensive reports based on research and analysis",
		Backstory: "You are an expert technical writer who creates well-structured, " +
			"insightful reports. You synthesize information from multiple sources " +
			"into coherent narratives.",
	}
}
