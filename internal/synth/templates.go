package synth

// Templates holds the canned text used when a section is missing from the
// input. Replace it with WithTemplates to change the house style.
type Templates struct {
	Skeleton string

	Summary string

	Experience    string
	TORExperience string

	Education    string
	TOREducation string

	Skills         []string
	TORSkillsFixed []string
	TORSkillsTail  []string

	Projects    string
	TORProjects string
}

// DefaultTemplates returns the built-in filler text.
func DefaultTemplates() Templates {
	return Templates{
		Skeleton: "# " + DefaultName,

		Summary: "Experienced professional with a proven track record of delivering results. " +
			"Skilled in strategic planning, project management, and stakeholder engagement.",

		Experience: `### Senior Professional | Current Organization | Current
- Led strategic initiatives resulting in significant improvements to operational efficiency
- Managed cross-functional teams to deliver complex projects on time and within budget
- Developed and implemented innovative solutions to address business challenges
- Collaborated with stakeholders to ensure alignment with organizational objectives

### Previous Role | Previous Organization | Past
- Executed key responsibilities with a focus on quality and attention to detail
- Contributed to team success through effective collaboration and communication
- Identified opportunities for process improvement and implemented solutions
- Developed expertise in relevant methodologies and best practices`,

		// Formatted with name, three lead bullets and the previous-role lead.
		TORExperience: `### Technical Consultant | %s Consulting | Current
- %s
- %s
- %s
- Collaborated with stakeholders to ensure alignment with evolving requirements

### Previous Experience
- %s
- Prepared detailed reports with findings and recommendations
- Advised clients on best practices for maintaining compliance with regulations
- Developed and implemented training programs for internal teams`,

		Education: `- Advanced Degree | University Name | Year
- Undergraduate Degree | University Name | Year
- Relevant Certifications and Professional Development`,

		TOREducation: `- Advanced Degree in relevant field
- Professional certifications in specialized areas`,

		Skills: []string{
			"Strategic Planning and Analysis",
			"Project Management and Implementation",
			"Team Leadership and Collaboration",
			"Stakeholder Engagement and Communication",
			"Problem Solving and Decision Making",
			"Technical Expertise in Relevant Field",
		},

		TORSkillsFixed: []string{
			"Risk Assessment and Mitigation",
			"Stakeholder Communication and Reporting",
		},
		TORSkillsTail: []string{
			"Project Management and Implementation",
		},

		Projects: `### Strategic Initiative
- Led development and implementation of a comprehensive strategy
- Achieved measurable results including improved efficiency and cost savings
- Collaborated with cross-functional teams to ensure successful outcomes

### Process Improvement
- Identified opportunities for optimization in existing workflows
- Implemented solutions that resulted in significant improvements
- Documented best practices for future reference and knowledge sharing`,

		TORProjects: `### Comprehensive Review Framework
- Developed a structured framework for conducting thorough reviews
- Implemented the framework across multiple client engagements, resulting in high compliance rates

### Training and Knowledge Transfer
- Created and delivered training on requirements and methodologies
- Programs adopted by multiple organizations as part of their protocols`,
	}
}
